package services

import (
	"testing"
	"time"
)

func TestScore(t *testing.T) {
	cases := []struct {
		bins, minutes, want int
	}{
		{5, 120, 3},
		{0, 0, 0},
		{0, 45, 0},
		{60, 1, 100},
		{2, 120, 1},
		{1, 0, 60}, // sub-minute sessions count as one minute
		{30, 30, 60},
		{3, 2, 90},
		{500, 60, 100},
	}
	for _, tc := range cases {
		if got := Score(tc.bins, tc.minutes); got != tc.want {
			t.Errorf("Score(%d, %d) = %d, want %d", tc.bins, tc.minutes, got, tc.want)
		}
	}
}

func TestScoreStaysInRange(t *testing.T) {
	for bins := 0; bins <= 300; bins += 7 {
		for minutes := 0; minutes <= 600; minutes += 13 {
			s := Score(bins, minutes)
			if s < 0 || s > MaxEfficiencyScore {
				t.Fatalf("Score(%d, %d) = %d out of range", bins, minutes, s)
			}
		}
	}
}

func TestElapsedMinutes(t *testing.T) {
	start := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{29 * time.Second, 0},
		{30 * time.Second, 1},
		{119*time.Minute + 31*time.Second, 120},
		{120 * time.Minute, 120},
		{-time.Minute, 0},
	}
	for _, tc := range cases {
		if got := ElapsedMinutes(start, start.Add(tc.d)); got != tc.want {
			t.Errorf("ElapsedMinutes(+%s) = %d, want %d", tc.d, got, tc.want)
		}
	}
}
