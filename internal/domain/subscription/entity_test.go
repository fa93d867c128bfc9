package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionDerivedState(t *testing.T) {
	end := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	sub := &Subscription{Status: StatusActive, CurrentPeriodEnd: end}

	tests := []struct {
		name         string
		now          time.Time
		expired      bool
		expiringSoon bool
		daysLeft     int
	}{
		{"mid period", end.Add(-10 * 24 * time.Hour), false, false, 10},
		{"just outside notice window", end.Add(-ExpiringSoonWindow - time.Second), false, false, 3},
		{"exactly at notice window", end.Add(-ExpiringSoonWindow), false, true, 3},
		{"two days left", end.Add(-48 * time.Hour), false, true, 2},
		{"one second left", end.Add(-time.Second), false, true, 0},
		{"exactly at period end", end, false, false, 0},
		{"one second past", end.Add(time.Second), true, false, 0},
		{"long lapsed", end.Add(40 * 24 * time.Hour), true, false, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expired, sub.IsExpired(tc.now), "IsExpired")
			assert.Equal(t, tc.expiringSoon, sub.IsExpiringSoon(tc.now), "IsExpiringSoon")
			assert.Equal(t, tc.daysLeft, sub.DaysRemaining(tc.now), "DaysRemaining")
		})
	}
}

func TestViewAt(t *testing.T) {
	end := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	sub := &Subscription{ID: "s-1", Status: StatusActive, CurrentPeriodEnd: end}

	v := sub.ViewAt(end.Add(-24 * time.Hour))
	assert.Equal(t, "s-1", v.ID)
	assert.False(t, v.IsExpiredNow)
	assert.True(t, v.IsExpiringSoonF)
	assert.Equal(t, 1, v.DaysLeft)

	v = sub.ViewAt(end.Add(time.Hour))
	assert.True(t, v.IsExpiredNow)
	assert.False(t, v.IsExpiringSoonF)
	assert.Equal(t, 0, v.DaysLeft)
}
