package common

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// NewNumericCode returns a string of n uniformly distributed decimal digits
// drawn from crypto/rand.
func NewNumericCode(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)

	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + d.Int64()))
	}

	return b.String(), nil
}
