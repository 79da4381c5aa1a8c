package codes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Format(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := Generate("KeyShareBD")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(code, "KeyShareBD-"))
		assert.Len(t, code, len("KeyShareBD")+15)
		assert.True(t, Pattern.MatchString(code), code)
	}
}

func TestGenerate_HyphenatedPrefix(t *testing.T) {
	code, err := Generate("Movie-Night")
	require.NoError(t, err)
	assert.True(t, LooksLikeCode(code))
}

func TestGenerate_InvalidPrefix(t *testing.T) {
	_, err := Generate("bad prefix")
	assert.Error(t, err)
	_, err = Generate("")
	assert.Error(t, err)
}

func TestGenerateUnique_AvoidsTaken(t *testing.T) {
	taken := map[string]struct{}{}
	for i := 0; i < 500; i++ {
		_, err := GenerateUnique("File", taken)
		require.NoError(t, err)
	}
	assert.Len(t, taken, 500)
}

func TestLooksLikeCode(t *testing.T) {
	assert.True(t, LooksLikeCode(" KeyShareBD-AB12-CD34-EF56 "))
	assert.False(t, LooksLikeCode("KeyShareBD-ab12-CD34-EF56"))
	assert.False(t, LooksLikeCode("hello there"))
	assert.False(t, LooksLikeCode("AB12-CD34-EF56"))
}
