package diagnostics

import "testing"

func TestValidTestType(t *testing.T) {
	cases := []struct {
		category, testType string
		valid              bool
	}{
		{CategoryLaboratory, "blood test", true},
		{CategoryLaboratory, "urine test", true},
		{CategoryRadiology, "x-ray", true},
		{CategoryRadiology, "ultrasound", true},
		{CategoryRadiology, "ct scan", true},
		{CategoryRadiology, "mri", true},
		{CategoryLaboratory, "x-ray", false},
		{CategoryRadiology, "blood test", false},
		{CategoryLaboratory, "MRI", false},
		{"pathology", "blood test", false},
		{CategoryLaboratory, "", false},
	}
	for _, tc := range cases {
		if got := ValidTestType(tc.category, tc.testType); got != tc.valid {
			t.Errorf("ValidTestType(%q, %q) = %v, want %v", tc.category, tc.testType, got, tc.valid)
		}
	}
}
