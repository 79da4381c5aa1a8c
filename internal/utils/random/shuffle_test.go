package random

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShuffle_KeepsElements(t *testing.T) {
	in := []int{1, 2, 3, 4, 5, 6, 7, 8}
	require.NoError(t, Shuffle(in))
	sort.Ints(in)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, in)
}

func TestSample_DistinctAndClamped(t *testing.T) {
	src := []string{"a", "b", "c", "d"}

	got, err := Sample(src, 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	seen := map[string]bool{}
	for _, v := range got {
		assert.False(t, seen[v], "duplicate %s", v)
		seen[v] = true
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, src, "source must not be modified")

	got, err = Sample(src, 10)
	require.NoError(t, err)
	assert.Len(t, got, 4)

	got, err = Sample(src, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSample_CoversEveryElement(t *testing.T) {
	src := []int{0, 1, 2, 3, 4}
	hits := make([]int, len(src))
	for i := 0; i < 500; i++ {
		got, err := Sample(src, 1)
		require.NoError(t, err)
		hits[got[0]]++
	}
	for i, h := range hits {
		assert.Greater(t, h, 0, "element %d never sampled", i)
	}
}

func TestString(t *testing.T) {
	s, err := String("AB", 16)
	require.NoError(t, err)
	assert.Len(t, s, 16)
	assert.Empty(t, strings.Trim(s, "AB"))

	_, err = String("", 4)
	assert.Error(t, err)
}
