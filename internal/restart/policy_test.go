package restart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldRestart(t *testing.T) {
	now := time.Now()
	window := 10 * time.Minute

	tests := []struct {
		name       string
		disabled   bool
		disabledAt time.Time
		loggedIn   bool
		want       bool
	}{
		{"logged in, no flag", false, time.Time{}, true, true},
		{"flag within window", true, now.Add(-5 * time.Minute), true, false},
		{"flag just inside window", true, now.Add(-window + time.Second), true, false},
		{"flag expired", true, now.Add(-11 * time.Minute), true, true},
		{"flag exactly at window edge", true, now.Add(-window), true, true},
		{"not logged in", false, time.Time{}, false, false},
		{"not logged in with expired flag", true, now.Add(-time.Hour), false, false},
		{"disabled and logged out", true, now.Add(-time.Minute), false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ShouldRestart(tc.disabled, tc.disabledAt, now, tc.loggedIn, window)
			assert.Equal(t, tc.want, got)
		})
	}
}
