package domain

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

const maxCodeLength = 4

// NormalizeKey is the comparison key for ids, codes and names.
func NormalizeKey(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// DeriveCode builds a short code from a department name: the first four
// letters of a single word, or the initials of up to four words.
func DeriveCode(name string) string {
	words := strings.Fields(name)
	switch len(words) {
	case 0:
		return ""
	case 1:
		w := words[0]
		if utf8.RuneCountInString(w) > maxCodeLength {
			w = string([]rune(w)[:maxCodeLength])
		}
		return strings.ToUpper(w)
	}

	var b strings.Builder
	for i, w := range words {
		if i == maxCodeLength {
			break
		}
		r, _ := utf8.DecodeRuneInString(w)
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

// UniqueCode returns candidate, or candidate with the smallest numeric suffix
// starting at 1, whose normalized form is in none of the taken sets.
// The sets are keyed by NormalizeKey.
func UniqueCode(candidate string, taken ...map[string]struct{}) string {
	isTaken := func(v string) bool {
		k := NormalizeKey(v)
		for _, set := range taken {
			if _, ok := set[k]; ok {
				return true
			}
		}
		return false
	}

	code := candidate
	for n := 1; isTaken(code); n++ {
		code = candidate + strconv.Itoa(n)
	}
	return code
}
