package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompanyKey(t *testing.T) {
	tests := []struct {
		name     string
		domain   string
		coName   string
		expected string
	}{
		{"domain wins over name", "Acme.com", "Acme Corp", "acme.com"},
		{"falls back to name", "", "Acme Corp", "acme corp"},
		{"whitespace domain falls back", "   ", "Acme Corp", "acme corp"},
		{"both empty", "", "", ""},
		{"trims and lowercases domain", "  ACME.COM  ", "", "acme.com"},
		{"trims and lowercases name", "", "  Acme CORP  ", "acme corp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CompanyKey(tt.domain, tt.coName))
		})
	}
}

func TestDomain(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain domain", "acme.com", "acme.com"},
		{"uppercase", "ACME.COM", "acme.com"},
		{"strips scheme", "https://acme.com", "acme.com"},
		{"strips www", "www.acme.com", "acme.com"},
		{"strips scheme www and path", "https://www.Acme.com/about?x=1", "acme.com"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Domain(tt.input))
		})
	}
}

func TestDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"year only", "2019", "2019-01-01"},
		{"year month", "2019-06", "2019-06-01"},
		{"full date passes through", "2019-06-15", "2019-06-15"},
		{"empty", "", ""},
		{"whitespace", "  2019  ", "2019-01-01"},
		{"malformed passes through", "June 2019", "June 2019"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Date(tt.input))
		})
	}
}
