package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHibernationZeroCrossing(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var hib Hibernation

	// Starting empty is not a transition, only a crossing from >0 to 0 is.
	require.Equal(t, HibernationUnchanged, hib.Observe(0, now))
	require.False(t, hib.Idle())

	require.Equal(t, HibernationUnchanged, hib.Observe(3, now))
	require.Equal(t, HibernationEntered, hib.Observe(0, now.Add(time.Minute)))
	require.True(t, hib.Idle())
	require.Equal(t, 1, hib.Count())
	require.Equal(t, now.Add(time.Minute), hib.Since())

	// Repeated empty polls do not re-enter.
	require.Equal(t, HibernationUnchanged, hib.Observe(0, now.Add(2*time.Minute)))
	require.Equal(t, 1, hib.Count())

	require.Equal(t, HibernationLeft, hib.Observe(2, now.Add(3*time.Minute)))
	require.False(t, hib.Idle())
}

func TestHibernationCountAccumulates(t *testing.T) {
	now := time.Now()

	var hib Hibernation
	for i := range 3 {
		ts := now.Add(time.Duration(i) * time.Hour)
		require.Equal(t, HibernationUnchanged, hib.Observe(1, ts))
		require.Equal(t, HibernationEntered, hib.Observe(0, ts.Add(time.Minute)))
	}

	require.Equal(t, 3, hib.Count())
}

func TestHibernationForce(t *testing.T) {
	now := time.Now()

	var hib Hibernation
	require.True(t, hib.Force(now))
	require.True(t, hib.Idle())
	require.Equal(t, 1, hib.Count())

	// Forcing while already idle changes nothing.
	require.False(t, hib.Force(now.Add(time.Minute)))
	require.Equal(t, 1, hib.Count())

	require.Equal(t, HibernationLeft, hib.Observe(1, now.Add(2*time.Minute)))
}
