package models

import "testing"

func TestParseDifficulty(t *testing.T) {
	cases := []struct {
		in   string
		want Difficulty
	}{
		{"HIGH", DifficultyHigh},
		{"high", DifficultyHigh},
		{" critical ", DifficultyCritical},
		{"low", DifficultyLow},
		{"medium", DifficultyMedium},
		{"", DifficultyMedium},
		{"urgent", DifficultyMedium},
	}
	for _, tc := range cases {
		if got := ParseDifficulty(tc.in); got != tc.want {
			t.Errorf("ParseDifficulty(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestDifficultyRankOrdering(t *testing.T) {
	if !(DifficultyCritical.Rank() > DifficultyHigh.Rank() &&
		DifficultyHigh.Rank() > DifficultyMedium.Rank() &&
		DifficultyMedium.Rank() > DifficultyLow.Rank()) {
		t.Error("difficulty ranks are not strictly ordered")
	}
	if Difficulty("bogus").Rank() != 0 {
		t.Error("unknown difficulty should rank below all known levels")
	}
}

func TestDifficultyValid(t *testing.T) {
	for _, d := range []Difficulty{DifficultyLow, DifficultyMedium, DifficultyHigh, DifficultyCritical} {
		if !d.Valid() {
			t.Errorf("%s should be valid", d)
		}
	}
	if Difficulty("EXTREME").Valid() {
		t.Error("unknown difficulty should be invalid")
	}
}
