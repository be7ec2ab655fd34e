// Package roomcode generates and validates the short codes players type to find a room.
package roomcode

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const (
	// Length is the fixed length of every room code.
	Length = 6

	// Alphabet is uppercase letters and digits without I, O, 0 and 1, which players misread.
	Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// maxAttempts bounds CreateUnique before it falls back to a concatenated code.
	maxAttempts = 20
)

// Generate returns a random code drawn uniformly from Alphabet.
func Generate() string {
	return Random(Alphabet, Length)
}

// CreateUnique returns the first generated code for which taken reports false.
// After maxAttempts collisions it concatenates two codes and truncates to Length,
// accepting a vanishingly small collision risk rather than failing.
func CreateUnique(taken func(code string) bool) string {
	for i := 0; i < maxAttempts; i++ {
		code := Generate()
		if !taken(code) {
			return code
		}
	}
	return (Generate() + Generate())[:Length]
}

// Normalize trims whitespace and uppercases a code typed by a player.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether code has the fixed length and only Alphabet characters.
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(Alphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}

// Random returns n characters drawn uniformly from alphabet, which holds at most 256 bytes.
func Random(alphabet string, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[randomIndex(len(alphabet))]
	}
	return string(b)
}

// randomIndex returns a uniform index in [0, n) for 0 < n <= 256, rejecting bytes past
// the largest multiple of n. crypto/rand.Read never returns an error.
func randomIndex(n int) int {
	if n <= 0 || n > 256 {
		panic(fmt.Sprintf("roomcode: alphabet size %d out of range", n))
	}
	limit := 256 - 256%n
	var b [1]byte
	for {
		rand.Read(b[:])
		if int(b[0]) < limit {
			return int(b[0]) % n
		}
	}
}
