package util

import (
	"testing"

	"github.com/OneOfOne/xxhash"
	"github.com/stretchr/testify/assert"
)

func TestHashCodeOf(t *testing.T) {
	a := HashCodeOf([]byte("788788"))
	assert.Equal(t, a, HashCodeOf([]byte("788788")))
	assert.NotEqual(t, a, HashCodeOf([]byte("788789")))
	assert.Equal(t, xxhash.Checksum64([]byte("hello world")), HashCodeOf([]byte("hello"), []byte(" "), []byte("world")))
	assert.Equal(t, xxhash.Checksum64(nil), HashCodeOf())
}
