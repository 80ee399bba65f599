package qpay

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign_KnownVector(t *testing.T) {
	assert.Equal(t, "aa802ff4d8f78f51344d070dd8ba3d1bd17ac3528f8f482dc93c5d8c9d405d3e", Sign("key", "a", "b"))
	assert.Equal(t, "2bb80d537b1da3e38bd30361aa855686bde0eacd7162fef6a25fe97bf527a25b", Sign("secret"))
}

func TestVerify_RoundTrip(t *testing.T) {
	fields := []string{"1", "10050", "QPAYPG03", "", "JOHN DOE", "411111XXXXXX1111"}
	hash := Sign("s3cr3t", fields...)

	require.True(t, Verify("s3cr3t", hash, fields...))
	assert.True(t, Verify("s3cr3t", strings.ToUpper(hash), fields...), "hex case is ignored")
	assert.False(t, Verify("other", hash, fields...), "another key")
	assert.False(t, Verify("s3cr3t", "", fields...), "empty candidate")
}

const fieldAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 +-_.:/"

func randomField(rng *rand.Rand) string {
	// roughly one field in five is empty, like unused Response_* values
	if rng.IntN(5) == 0 {
		return ""
	}
	b := make([]byte, 1+rng.IntN(24))
	for i := range b {
		b[i] = fieldAlphabet[rng.IntN(len(fieldAlphabet))]
	}
	return string(b)
}

// mutateField changes exactly one character of f, or appends one when f is
// empty, so the result always differs from f.
func mutateField(rng *rand.Rand, f string) string {
	if f == "" {
		return string(fieldAlphabet[rng.IntN(len(fieldAlphabet))])
	}
	b := []byte(f)
	i := rng.IntN(len(b))
	for {
		c := fieldAlphabet[rng.IntN(len(fieldAlphabet))]
		if c != b[i] {
			b[i] = c
			return string(b)
		}
	}
}

func TestVerify_RejectsAnySingleFieldMutation(t *testing.T) {
	rng := rand.New(rand.NewPCG(20260102, 30405))
	canonical := len((&Notification{}).CanonicalFields())
	require.Equal(t, 15, canonical)

	for iter := 0; iter < 500; iter++ {
		fields := make([]string, canonical)
		for i := range fields {
			fields[i] = randomField(rng)
		}
		hash := Sign("s3cr3t", fields...)
		require.True(t, Verify("s3cr3t", hash, fields...))

		idx := rng.IntN(canonical)
		mutated := append([]string(nil), fields...)
		mutated[idx] = mutateField(rng, fields[idx])

		require.NotEqual(t, fields[idx], mutated[idx])
		require.False(t, Verify("s3cr3t", hash, mutated...),
			"iteration %d: field %d %q -> %q still verified", iter, idx, fields[idx], mutated[idx])
	}
}

func TestSign_EmptyFieldsArePositional(t *testing.T) {
	assert.Equal(t, Sign("k", "ab", ""), Sign("k", "a", "b"), "fields are concatenated without delimiters")
	assert.NotEqual(t, Sign("k", "a", "b"), Sign("k", "b", "a"), "order changes the hash")
}
