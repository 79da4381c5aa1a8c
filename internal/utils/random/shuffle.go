package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Shuffle performs a cryptographically secure shuffle of the slice.
func Shuffle[T any](slice []T) error {
	for i := len(slice) - 1; i > 0; i-- {
		j, err := Intn(i + 1)
		if err != nil {
			return err
		}
		slice[i], slice[j] = slice[j], slice[i]
	}
	return nil
}

// Sample returns k distinct elements of src chosen uniformly without replacement.
// src is not modified. k is clamped to len(src).
func Sample[T any](src []T, k int) ([]T, error) {
	if k > len(src) {
		k = len(src)
	}
	if k <= 0 {
		return []T{}, nil
	}
	pool := make([]T, len(src))
	copy(pool, src)
	// Partial Fisher-Yates: the first k positions end up as the sample.
	for i := 0; i < k; i++ {
		j, err := Intn(len(pool) - i)
		if err != nil {
			return nil, err
		}
		j += i
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k], nil
}

// String returns n symbols drawn independently from alphabet.
func String(alphabet string, n int) (string, error) {
	if alphabet == "" {
		return "", fmt.Errorf("empty alphabet")
	}
	buf := make([]byte, n)
	for i := range buf {
		idx, err := Intn(len(alphabet))
		if err != nil {
			return "", err
		}
		buf[i] = alphabet[idx]
	}
	return string(buf), nil
}

// Intn returns a uniform random int in [0, n).
func Intn(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random number: %w", err)
	}
	return int(v.Int64()), nil
}
