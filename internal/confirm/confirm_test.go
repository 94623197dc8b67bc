package confirm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveOnlyOnce(t *testing.T) {
	c := &Confirmation{}
	require.Equal(t, Pending, c.State())

	st, ok := c.Resolve(false)
	require.True(t, ok)
	require.Equal(t, Cancelled, st)

	st, ok = c.Resolve(true)
	require.False(t, ok)
	require.Equal(t, Cancelled, st)
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()
	c := r.Open("listing.delete", "L1", "Delete this listing?")
	require.NotEmpty(t, c.Token)
	require.Equal(t, 1, r.Len())

	_, err := r.Resolve(c.Token, "listing.delete", "L2", true)
	require.ErrorIs(t, err, ErrUnknown)

	got, err := r.Resolve(c.Token, "listing.delete", "L1", true)
	require.NoError(t, err)
	require.Equal(t, Confirmed, got.State())
	require.Zero(t, r.Len())

	_, err = r.Resolve(c.Token, "listing.delete", "L1", false)
	require.ErrorIs(t, err, ErrUnknown)
	require.Equal(t, Confirmed, got.State())
}

func TestReopenReplacesEarlierToken(t *testing.T) {
	r := NewRegistry()
	first := r.Open("listing.delete", "L1", "Delete this listing?")
	other := r.Open("listing.delete", "L2", "Delete this listing?")
	for i := 0; i < 5; i++ {
		r.Open("listing.delete", "L1", "Delete this listing?")
	}
	latest := r.Open("listing.delete", "L1", "Delete this listing?")
	require.Equal(t, 2, r.Len())

	_, err := r.Resolve(first.Token, "listing.delete", "L1", true)
	require.ErrorIs(t, err, ErrUnknown)

	got, err := r.Resolve(latest.Token, "listing.delete", "L1", true)
	require.NoError(t, err)
	require.Equal(t, Confirmed, got.State())

	_, err = r.Resolve(other.Token, "listing.delete", "L2", false)
	require.NoError(t, err)
	require.Zero(t, r.Len())
}
