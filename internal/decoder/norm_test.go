package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormFromFlags(t *testing.T) {
	t.Run("both flags conflict", func(t *testing.T) {
		_, err := NormFromFlags(true, true, 2)
		require.ErrorIs(t, err, ErrNormConflict)
	})

	t.Run("batchnorm", func(t *testing.T) {
		n, err := NormFromFlags(true, false, 0)
		require.NoError(t, err)
		assert.Equal(t, NormBatch, n.Mode)
	})

	t.Run("groupnorm with default group count", func(t *testing.T) {
		n, err := NormFromFlags(false, true, 0)
		require.NoError(t, err)
		assert.Equal(t, NormGroup, n.Mode)
		assert.Equal(t, 2, n.Groups)
	})

	t.Run("groupnorm keeps explicit group count", func(t *testing.T) {
		n, err := NormFromFlags(false, true, 8)
		require.NoError(t, err)
		assert.Equal(t, 8, n.Groups)
	})

	t.Run("neither flag means no normalization", func(t *testing.T) {
		n, err := NormFromFlags(false, false, 0)
		require.NoError(t, err)
		assert.Equal(t, NormNone, n.Mode)
	})
}

func TestParseBlockType(t *testing.T) {
	bt, err := ParseBlockType("upsampling")
	require.NoError(t, err)
	assert.Equal(t, BlockUpsampling, bt)

	bt, err = ParseBlockType("transpose")
	require.NoError(t, err)
	assert.Equal(t, BlockTranspose, bt)

	_, err = ParseBlockType("bilinear")
	require.ErrorIs(t, err, ErrUnknownBlockType)
}
