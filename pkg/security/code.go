package security

import (
	"crypto/rand"
	"math/big"
)

const (
	CodeMin = 100000
	CodeMax = 999999
)

var codeSpan = big.NewInt(CodeMax - CodeMin + 1)

// NewCode returns a 6 digit verification code drawn uniformly from
// [CodeMin, CodeMax]
func NewCode() (int, error) {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		return 0, err
	}

	return CodeMin + int(n.Int64()), nil
}
