// Package utils holds small string helpers shared by mockengine and tunnel,
// grounded on pymock/utils.py.
package utils

import (
	"math/rand"
	"strings"
)

const randAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandString returns a random uppercase-alphanumeric string of the given
// length, matching pymock's randstr (used here for tunnel connection IDs;
// request IDs come from uuid in mockengine).
func RandString(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = randAlphabet[rand.Intn(len(randAlphabet))]
	}
	return string(b)
}

const safeChars = "_-." + "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// SafeFilename replaces every character outside the conservative
// [A-Za-z0-9_-.] set with an underscore, matching pymock's safe_filename
// (used to build recordings/<time>-<safe path>.txt).
func SafeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if strings.ContainsRune(safeChars, r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
