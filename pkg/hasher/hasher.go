// Package hasher normalizes personal data the way Meta's matching expects and
// hashes it with SHA-256.
//
// Every function returns "" for empty or invalid input, callers omit the key
// in that case. The empty string itself is never hashed.
package hasher

import (
	"strings"
	"unicode"

	"github.com/trackify-io/trackify/utils"
)

func hash(normalized string) string {
	if normalized == "" {
		return ""
	}
	return utils.Sha256(normalized)
}

func removeFunc(s string, drop func(rune) bool) string {
	return strings.Map(func(r rune) rune {
		if drop(r) {
			return -1
		}
		return r
	}, s)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func Email(value string) string {
	email := normalize(value)
	if !utils.IsEmail(email) {
		return ""
	}
	return hash(email)
}

func Phone(value string) string {
	return hash(removeFunc(value, func(r rune) bool { return r < '0' || r > '9' }))
}

// Text hashes first and last names.
func Text(value string) string {
	return hash(removeFunc(normalize(value), unicode.IsSpace))
}

func City(value string) string {
	return Text(value)
}

func State(value string) string {
	return Text(value)
}

func Country(value string) string {
	return hash(normalize(value))
}

func Postcode(value string) string {
	return hash(removeFunc(normalize(value), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}))
}

func Gender(value string) string {
	switch normalize(value) {
	case "m", "male":
		return hash("m")
	case "f", "female":
		return hash("f")
	}
	return ""
}

// DateOfBirth accepts any separator, the remaining digits must form YYYYMMDD.
func DateOfBirth(value string) string {
	digits := removeFunc(value, func(r rune) bool { return r < '0' || r > '9' })
	if len(digits) != 8 {
		return ""
	}
	return hash(digits)
}

// IsHashed reports whether value already is a SHA-256 hex digest.
func IsHashed(value string) bool {
	return utils.IsSha256Hex(value)
}
