package labextract

import "testing"

func TestNormalizeDecimal(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"142,5", "142.5"},
		{"142.5", "142.5"},
		{"1.234,56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"142", "142"},
		{"1.234.567", "1.234.567"},
		{"1,234,567", "1,234,567"},
		{"1.234.567,8", "1.234.567,8"},
	}

	for _, tt := range tests {
		if got := NormalizeDecimal(tt.raw); got != tt.want {
			t.Errorf("NormalizeDecimal(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestExtractValue(t *testing.T) {
	tests := []struct {
		name   string
		suffix string
		want   string
		wantOK bool
	}{
		{"comma decimal", "Sodium: 142,5 mmol/L", "142.5", true},
		{"dot decimal", "Sodium 142.5", "142.5", true},
		{"european thousands", "Plaquettes = 1.234,56", "1234.56", true},
		{"us thousands", "Platelets (1,234.56)", "1234.56", true},
		{"integer", "Glucose: 90", "90", true},
		{"trailing comma is not decimal", "Sodium 142, Potassium", "142", true},
		{"dash separator", "K - 4,1", "4.1", true},
		{"leading decimal", "K .5", ".5", true},
		{"leading decimal after colon", "K:.5 mmol/L", ".5", true},
		{"no number", "Sodium pending", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractValue(tt.suffix)
			if ok != tt.wantOK {
				t.Fatalf("ExtractValue(%q) ok = %v, want %v", tt.suffix, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ExtractValue(%q) = %q, want %q", tt.suffix, got, tt.want)
			}
		})
	}
}
