package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "62.50", Format(6250))
	assert.Equal(t, "0.05", Format(5))
	assert.Equal(t, "0.00", Format(0))
	assert.Equal(t, "$1000.00", FormatUSD(100000))
	assert.Equal(t, "-$1.50", FormatUSD(-150))
}

func TestParseDollars(t *testing.T) {
	cents, err := ParseDollars("12.5")
	require.NoError(t, err)
	assert.Equal(t, int64(1250), cents)

	cents, err = ParseDollars("50")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), cents)

	_, err = ParseDollars("1.999")
	assert.Error(t, err)

	_, err = ParseDollars("abc")
	assert.Error(t, err)
}
