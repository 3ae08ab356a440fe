package servicetoken

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	hash, err := Hash("s2s-secret")
	require.NoError(t, err)
	v := New(hash)

	assert.True(t, v.Verify("s2s-secret"))
	assert.False(t, v.Verify("wrong"))
	assert.False(t, v.Verify(""))
}

func TestEmptyHashFailsClosed(t *testing.T) {
	v := New("")
	assert.False(t, v.Verify("anything"))
}
