package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Hash(""))
	assert.Len(t, Hash("quickbyte"), 64)
}

func TestHashKeySeparatesParts(t *testing.T) {
	assert.NotEqual(t, HashKey("a", "bc"), HashKey("ab", "c"))
	assert.Equal(t, HashKey("search", "golang", "1"), HashKey("search", "golang", "1"))
}
