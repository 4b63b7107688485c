package internal

import (
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChain2(t *testing.T) {
	assert := assert.New(t)

	first := slices.All([]string{"a", "b"})
	second := slices.All([]string{"x", "y", "z"})

	got := maps.Collect(Chain2(first, second))
	assert.Equal(map[int]string{0: "a", 1: "b", 2: "z"}, got)

	var keys []int
	for key := range Chain2(first, second) {
		keys = append(keys, key)
		if len(keys) == 2 {
			break
		}
	}
	assert.Equal([]int{0, 1}, keys)
}
