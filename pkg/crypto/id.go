package crypto

import "crypto/rand"

const (
	// idAlphabet is URL-safe and exactly 64 characters, so a masked random
	// byte always lands on a valid index with uniform probability.
	idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

	// DefaultIDLength of 22 gives 132 bits of entropy (a uuid is 128 bits).
	DefaultIDLength = 22
)

// NewID returns a URL-safe random identifier used for user and token IDs.
func NewID() (string, error) {
	buf := make([]byte, DefaultIDLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	id := make([]byte, DefaultIDLength)
	for i, b := range buf {
		id[i] = idAlphabet[b&63]
	}

	return string(id), nil
}
