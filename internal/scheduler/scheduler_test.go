package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRepeatMatches(t *testing.T) {
	cases := []struct {
		repeat string
		day    time.Weekday
		want   bool
	}{
		{"", time.Wednesday, true},
		{"daily", time.Sunday, true},
		{"weekdays", time.Monday, true},
		{"weekdays", time.Friday, true},
		{"weekdays", time.Saturday, false},
		{"weekends", time.Saturday, true},
		{"weekends", time.Sunday, true},
		{"weekends", time.Tuesday, false},
		// 未知取值不拦截
		{"fortnightly", time.Monday, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, repeatMatches(tc.repeat, tc.day),
			"repeat=%q day=%v", tc.repeat, tc.day)
	}
}
