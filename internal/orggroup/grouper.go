// Package orggroup detects multi-location organizations among candidate
// resources so branches can be linked under one parent aggregate row.
package orggroup

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/reentry-map/resource-verifier/internal/dedupe"
	"github.com/reentry-map/resource-verifier/internal/model"
)

// Link carries the organization linkage derived for one candidate.
type Link struct {
	OrgName      string
	LocationName string
}

// locationSuffixRes match the suffix patterns branches use to distinguish
// themselves: "Community Center - Eastside", "Food Bank #2",
// "Shelter (Downtown)".
var locationSuffixRes = []*regexp.Regexp{
	regexp.MustCompile(`\s*[-–—]\s*([^-–—]+)$`),
	regexp.MustCompile(`\s*#\s*(\d+)$`),
	regexp.MustCompile(`\s*\(([^)]+)\)$`),
}

// SplitLocation splits a candidate name into its organization base name and
// a location qualifier. Names without a recognized suffix return the whole
// name and an empty location.
func SplitLocation(name string) (base, location string) {
	trimmed := strings.TrimSpace(name)
	for _, re := range locationSuffixRes {
		if m := re.FindStringSubmatch(trimmed); m != nil {
			base = strings.TrimSpace(trimmed[:len(trimmed)-len(m[0])])
			location = strings.TrimSpace(m[1])
			if base != "" {
				return base, location
			}
		}
	}
	return trimmed, ""
}

// GroupLocations groups candidates that share an organization base name but
// differ in street address. Only organizations with at least two
// distinct-address members are emitted; the map key is the display base name
// of the first member seen.
func GroupLocations(candidates []*model.ResourceCandidate) map[string][]*model.ResourceCandidate {
	type group struct {
		display   string
		members   []*model.ResourceCandidate
		addresses map[string]bool
	}

	groups := make(map[string]*group)
	var order []string
	for _, c := range candidates {
		base, _ := SplitLocation(c.Name)
		key := dedupe.NormalizeName(base)
		if key == "" {
			continue
		}

		g, ok := groups[key]
		if !ok {
			g = &group{display: base, addresses: make(map[string]bool)}
			groups[key] = g
			order = append(order, key)
		}
		g.members = append(g.members, c)
		if addr := dedupe.NormalizeStreet(c.Street); addr != "" {
			g.addresses[addr] = true
		}
	}

	out := make(map[string][]*model.ResourceCandidate)
	for _, key := range order {
		g := groups[key]
		if len(g.members) >= 2 && len(g.addresses) >= 2 {
			out[g.display] = g.members
			zap.L().Debug("orggroup: multi-location org detected",
				zap.String("org", g.display),
				zap.Int("locations", len(g.members)),
			)
		}
	}
	return out
}

// Links flattens grouped candidates into per-candidate-ID organization
// links, deriving each location name by stripping the org name from the
// candidate's name.
func Links(groups map[string][]*model.ResourceCandidate) map[string]Link {
	links := make(map[string]Link)
	for orgName, members := range groups {
		for _, c := range members {
			_, location := SplitLocation(c.Name)
			if location == "" {
				// Fall back to the city when the name carries no qualifier.
				location = c.City
			}
			links[c.ID] = Link{OrgName: orgName, LocationName: location}
		}
	}
	return links
}
