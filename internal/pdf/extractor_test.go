package pdf

import (
	"strings"
	"testing"
)

func TestExtractModelName(t *testing.T) {
	cases := []struct {
		filename string
		want     string
	}{
		{"Toyota_Camry_Specifications.pdf", "Camry"},
		{"Toyota_Corolla_Specifications.pdf", "Corolla"},
		{"Toyota_Land_Cruiser_Specifications.pdf", "Land Cruiser"},
		{"toyota_rav4_specification.pdf", "rav4"},
		{"/uploads/Toyota_Camry_Specifications.pdf", "Camry"},
		{"brochure.pdf", "brochure"},
		{"notes", "notes"},
	}
	for _, tc := range cases {
		if got := ExtractModelName(tc.filename); got != tc.want {
			t.Errorf("ExtractModelName(%q) = %q, want %q", tc.filename, got, tc.want)
		}
	}
}

func TestEvaluateTextQuality(t *testing.T) {
	good := "The 2024 Camry produces 208 horsepower and 163 lb-ft of torque. " +
		"Fuel economy is rated at 28 mpg city and 39 mpg highway. " +
		"The vehicle seats five passengers with 15,100 units sold."
	if score := evaluateTextQuality(good); score < 0.7 {
		t.Errorf("clean prose scored %f, expected >= 0.7", score)
	}

	garbled := strings.Repeat("��� ", 50)
	if score := evaluateTextQuality(garbled); score > 0.3 {
		t.Errorf("garbled text scored %f, expected <= 0.3", score)
	}

	if score := evaluateTextQuality("ab"); score > 0.2 {
		t.Errorf("tiny text scored %f, expected <= 0.2", score)
	}
}
