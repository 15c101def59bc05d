package util

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const shortCodeAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateShortCode returns a crypto-random base62 code of the given length.
func GenerateShortCode(length int) (string, error) {
	if length <= 0 {
		length = 7
	}
	var builder strings.Builder
	builder.Grow(length)
	max := big.NewInt(int64(len(shortCodeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(shortCodeAlphabet[n.Int64()])
	}
	return builder.String(), nil
}
