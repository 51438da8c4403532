package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortHash(t *testing.T) {
	assert.Equal(t, "1d2e3f4a5b6c", shortHash("1d2e3f4a5b6c7d8e9f0a"))
	assert.Equal(t, "abc123", shortHash("abc123"))
	assert.Equal(t, "", shortHash(""))
}
