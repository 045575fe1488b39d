package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"resourcemachine/internal/rm"
)

func digest(b byte) rm.Digest {
	return rm.NewDigest([]byte{b, 0x5f})
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "ledger"))
	require.NoError(t, err)
	defer s.Close()

	snap := &rm.Snapshot{
		Roots:       []rm.Digest{digest(1), digest(2)},
		Nullifiers:  []rm.Digest{digest(3)},
		Commitments: []rm.Digest{digest(4), digest(5), digest(6)},
	}
	require.NoError(t, s.SaveSnapshot(snap))

	got, err := s.LoadSnapshot()
	require.NoError(t, err)
	require.ElementsMatch(t, snap.Roots, got.Roots)
	require.ElementsMatch(t, snap.Nullifiers, got.Nullifiers)
	require.Equal(t, snap.Commitments, got.Commitments)
}

func TestLoadEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "ledger"))
	require.NoError(t, err)
	defer s.Close()

	snap, err := s.LoadSnapshot()
	require.NoError(t, err)
	require.Empty(t, snap.Roots)
	require.Empty(t, snap.Nullifiers)
	require.Empty(t, snap.Commitments)
}

func TestIncrementalSaveGrowsInPlace(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "ledger"))
	require.NoError(t, err)
	defer s.Close()

	first := &rm.Snapshot{
		Roots:       []rm.Digest{digest(1)},
		Commitments: []rm.Digest{digest(4)},
	}
	require.NoError(t, s.SaveSnapshot(first))

	second := &rm.Snapshot{
		Roots:       []rm.Digest{digest(1), digest(2)},
		Nullifiers:  []rm.Digest{digest(3)},
		Commitments: []rm.Digest{digest(4), digest(5)},
	}
	require.NoError(t, s.SaveSnapshot(second))

	got, err := s.LoadSnapshot()
	require.NoError(t, err)
	require.ElementsMatch(t, second.Roots, got.Roots)
	require.ElementsMatch(t, second.Nullifiers, got.Nullifiers)
	require.Equal(t, second.Commitments, got.Commitments)
}
