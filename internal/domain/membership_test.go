package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMembershipActiveAtBoundary(t *testing.T) {
	expires := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	m := Membership{
		Status:         MembershipActive,
		StartDate:      expires.AddDate(-1, 0, 0),
		ExpirationDate: expires,
	}

	require.True(t, m.ActiveAt(expires.Add(-time.Hour)))
	require.True(t, m.ActiveAt(expires), "expiration instant itself is still active")
	require.False(t, m.ActiveAt(expires.Add(time.Microsecond)))
	require.False(t, m.ActiveAt(m.StartDate.Add(-time.Microsecond)))
	require.True(t, m.ActiveAt(m.StartDate))
}

func TestMembershipActiveAtRequiresActiveStatus(t *testing.T) {
	now := time.Now()
	m := Membership{
		StartDate:      now.AddDate(0, -1, 0),
		ExpirationDate: now.AddDate(0, 1, 0),
	}

	for _, status := range []MembershipStatus{MembershipInactive, MembershipCancelled} {
		m.Status = status
		require.False(t, m.ActiveAt(now), "status %s must never be active", status)
	}

	m.Status = MembershipActive
	require.True(t, m.ActiveAt(now))
}

func TestMembershipStatusValid(t *testing.T) {
	require.True(t, MembershipActive.Valid())
	require.True(t, MembershipInactive.Valid())
	require.True(t, MembershipCancelled.Valid())
	require.False(t, MembershipStatus("expired").Valid())
	require.False(t, MembershipStatus("").Valid())
}
