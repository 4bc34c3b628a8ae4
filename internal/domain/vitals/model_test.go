package vitals

import (
	"errors"
	"testing"
)

func TestParseBloodPressure(t *testing.T) {
	cases := []struct {
		in       string
		sys, dia int
		wantErr  bool
	}{
		{"120/80", 120, 80, false},
		{"90/60", 90, 60, false},
		{"190/110", 190, 110, false},
		{"9/80", 0, 0, true},     // systolic too short
		{"1200/80", 0, 0, true},  // systolic too long
		{"120-80", 0, 0, true},   // wrong separator
		{"120/80/", 0, 0, true},  // trailing garbage
		{"abc/def", 0, 0, true},  // not numeric
		{"", 0, 0, true},
	}
	for _, tc := range cases {
		sys, dia, err := ParseBloodPressure(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("ParseBloodPressure(%q): expected ErrInvalid, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseBloodPressure(%q): unexpected error %v", tc.in, err)
			continue
		}
		if sys != tc.sys || dia != tc.dia {
			t.Errorf("ParseBloodPressure(%q) = %d/%d, want %d/%d", tc.in, sys, dia, tc.sys, tc.dia)
		}
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name               string
		sys, dia, hr       int
		temp               float64
		rr                 int
		critical           bool
	}{
		{"all normal", 120, 80, 72, 36.8, 16, false},
		{"systolic high", 181, 80, 72, 36.8, 16, true},
		{"systolic low", 89, 80, 72, 36.8, 16, true},
		{"diastolic high", 120, 121, 72, 36.8, 16, true},
		{"diastolic low", 120, 59, 72, 36.8, 16, true},
		{"heart rate high", 120, 80, 101, 36.8, 16, true},
		{"heart rate low", 120, 80, 59, 36.8, 16, true},
		{"temperature high", 120, 80, 72, 38.1, 16, true},
		{"temperature low", 120, 80, 72, 35.9, 16, true},
		{"respiration high", 120, 80, 72, 36.8, 21, true},
		{"respiration low", 120, 80, 72, 36.8, 11, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.sys, tc.dia, tc.hr, tc.temp, tc.rr); got != tc.critical {
				t.Errorf("Classify() = %v, want %v", got, tc.critical)
			}
		})
	}
}

// Values exactly at a threshold are normal; only strict violations flag.
func TestClassify_BoundariesNotCritical(t *testing.T) {
	boundaries := []struct {
		name         string
		sys, dia, hr int
		temp         float64
		rr           int
	}{
		{"systolic 180", 180, 80, 72, 36.8, 16},
		{"systolic 90", 90, 80, 72, 36.8, 16},
		{"diastolic 120", 120, 120, 72, 36.8, 16},
		{"diastolic 60", 120, 60, 72, 36.8, 16},
		{"heart rate 100", 120, 80, 100, 36.8, 16},
		{"heart rate 60", 120, 80, 60, 36.8, 16},
		{"temperature 38", 120, 80, 72, 38, 16},
		{"temperature 36", 120, 80, 72, 36, 16},
		{"respiration 20", 120, 80, 72, 36.8, 20},
		{"respiration 12", 120, 80, 72, 36.8, 12},
	}
	for _, tc := range boundaries {
		t.Run(tc.name, func(t *testing.T) {
			if Classify(tc.sys, tc.dia, tc.hr, tc.temp, tc.rr) {
				t.Error("boundary value must not be critical")
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		if !Classify(190, 70, 72, 36.8, 16) {
			t.Fatal("systolic 190 must classify critical on every call")
		}
	}
}
