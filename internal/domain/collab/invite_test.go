package collab_test

import (
	"testing"

	"github.com/retroloop/retroloop/internal/domain/collab"
	"github.com/stretchr/testify/require"
)

func TestNewInviteCodeShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := collab.NewInviteCode()
		require.True(t, collab.ValidInviteCode(code), "generated code %q", code)
		seen[code] = true
	}
	// Collisions are not checked at generation time; the code space is what
	// keeps them rare. 100 draws from 36^6 should never collide.
	require.Len(t, seen, 100)
}

func TestNormalizeInviteCode(t *testing.T) {
	require.Equal(t, "AB12CD", collab.NormalizeInviteCode("  ab12cd "))
	require.Equal(t, "AB12CD", collab.NormalizeInviteCode("AB12CD"))
}

func TestValidInviteCode(t *testing.T) {
	require.False(t, collab.ValidInviteCode("short"))
	require.False(t, collab.ValidInviteCode("toolong1"))
	require.False(t, collab.ValidInviteCode("ab12cd"), "lowercase is outside the alphabet")
	require.False(t, collab.ValidInviteCode("AB12C!"))
	require.True(t, collab.ValidInviteCode("AB12CD"))
}
