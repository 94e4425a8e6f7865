package model

import "time"

// CheckName identifies a single field verification check.
type CheckName string

const (
	CheckURLReachable      CheckName = "url_reachable"
	CheckPhoneValid        CheckName = "phone_valid"
	CheckAddressGeocodable CheckName = "address_geocodable"
)

// CheckDetails carries check-specific output.
type CheckDetails struct {
	StatusCode       int      `json:"status_code,omitempty"`
	NormalizedPhone  string   `json:"normalized_phone,omitempty"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
	FormattedAddress string   `json:"formatted_address,omitempty"`
	GeocodeQuality   string   `json:"geocode_quality,omitempty"`
	GeocodeSource    string   `json:"geocode_source,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// CheckResult is the per-field outcome of a verification run. Results are
// persisted as immutable log rows and never updated in place.
type CheckResult struct {
	Name       CheckName    `json:"name"`
	Pass       bool         `json:"pass"`
	Confidence float64      `json:"confidence"`
	Transient  bool         `json:"transient,omitempty"` // collaborator was unavailable
	Details    CheckDetails `json:"details"`
	CostUSD    float64      `json:"cost_usd"`
	Tokens     int          `json:"tokens,omitempty"`
	Duration   int64        `json:"duration_ms"`
}

// Outcome is the three-way verification decision.
type Outcome string

const (
	OutcomeAutoApprove  Outcome = "auto_approve"
	OutcomeAutoReject   Outcome = "auto_reject"
	OutcomeFlagForHuman Outcome = "flag_for_human"
)

// Decision is the engine's output for one verification run.
type Decision struct {
	Outcome    Outcome       `json:"outcome"`
	Confidence float64       `json:"confidence"`
	Reason     string        `json:"reason"`
	Checks     []CheckResult `json:"checks"`
	CostUSD    float64       `json:"cost_usd"`
	Tokens     int           `json:"tokens,omitempty"`
	DecidedAt  time.Time     `json:"decided_at"`
}

// Coordinates returns geocoded coordinates recorded by the address check,
// if any, so approval can reuse them instead of geocoding twice.
func (d *Decision) Coordinates() (lat, lng *float64) {
	for _, c := range d.Checks {
		if c.Name == CheckAddressGeocodable && c.Pass {
			return c.Details.Latitude, c.Details.Longitude
		}
	}
	return nil, nil
}
