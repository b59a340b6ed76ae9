package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapAndIsCode(t *testing.T) {
	base := fmt.Errorf("connection refused")
	err := fmt.Errorf("search: %w", Wrap(CodeSearch, "search backend failed", base))

	require.True(t, IsCode(err, CodeSearch))
	require.False(t, IsCode(err, CodeConfig))
	require.Equal(t, CodeSearch, CodeOf(err))
	require.ErrorIs(t, err, base)
	require.Equal(t, "search: search backend failed: connection refused", err.Error())
	require.Equal(t, "", CodeOf(base))
}
