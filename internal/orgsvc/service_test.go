package orgsvc

import "testing"

func TestParseOrgName(t *testing.T) {
	tests := []struct {
		in         string
		name       string
		department string
	}{
		{"Ministry of Health", "Ministry of Health", ""},
		{"Ministry of Health : Hospital Services", "Hospital Services", "Ministry of Health"},
		{"Ministry of Health:Hospital Services: Licensing", "Licensing", "Ministry of Health : Hospital Services"},
		{"  Ministry of Health  ", "Ministry of Health", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name, dept := ParseOrgName(tt.in)
			if name != tt.name {
				t.Errorf("name = %q, want %q", name, tt.name)
			}
			got := ""
			if dept != nil {
				got = *dept
			}
			if got != tt.department {
				t.Errorf("department = %q, want %q", got, tt.department)
			}
		})
	}
}
