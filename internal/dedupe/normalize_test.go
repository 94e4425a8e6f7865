package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "hope house", "HOPE HOUSE"},
		{"punctuation", "St. Vincent's Kitchen, Inc.", "ST VINCENTS KITCHEN INC"},
		{"ampersand", "Food & Shelter", "FOOD AND SHELTER"},
		{"diacritics", "Casa de Fé", "CASA DE FE"},
		{"hyphen and slash", "Re-Entry/Support Center", "RE ENTRY SUPPORT CENTER"},
		{"extra whitespace", "  Hope   House  ", "HOPE HOUSE"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}

func TestNormalizeStreet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    string
		b    string
	}{
		{"street vs st", "123 Oak Street", "123 OAK ST"},
		{"avenue vs ave", "500 Fifth Avenue", "500 fifth ave"},
		{"directionals", "12 North Main Street", "12 N MAIN ST"},
		{"suite", "10 Elm St. Suite 4", "10 Elm St Ste 4"},
		{"commas", "77 Pine St, Floor 2", "77 Pine St Floor 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, NormalizeStreet(tt.a), NormalizeStreet(tt.b))
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "5035551234", NormalizePhone("(503) 555-1234"))
	assert.Equal(t, "5035551234", NormalizePhone("+1 503 555 1234"))
	assert.Equal(t, "5035551234", NormalizePhone("503.555.1234"))
	assert.Equal(t, "", NormalizePhone("n/a"))
}
