package invitation

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// codeAlphabet excludes visually ambiguous characters (0/O and 1/I) so
// codes survive being read aloud or retyped from a phone screen.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the length of generated invitation codes.
const CodeLength = 6

// GenerateCode returns a random invitation code. Uniqueness is enforced
// by the repository's unique constraint, not here.
func GenerateCode() (string, error) {
	code := make([]byte, CodeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generating invitation code: %w", err)
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code), nil
}
