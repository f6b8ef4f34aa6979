package hash_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/cardlink/internal/platform/hash"
)

func TestHashAndVerify(t *testing.T) {
	h, err := hash.Hash("P@ssw0rd1")
	require.NoError(t, err)
	assert.NotEqual(t, "P@ssw0rd1", h)

	assert.True(t, hash.Verify("P@ssw0rd1", h))
	assert.False(t, hash.Verify("wrong", h))
}

func TestVerifyGarbageHash(t *testing.T) {
	assert.False(t, hash.Verify("P@ssw0rd1", "not-a-hash"))
}
