package collab

import (
	"math/rand/v2"
	"strings"
)

// Invite codes are short, human-shareable, and double as the session's
// storage key. Generation does not check for collisions against live codes;
// the code space (36^6) makes a clash acceptably rare for a 7-day session
// horizon.
const (
	inviteCodeLength   = 6
	inviteCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// NewInviteCode generates a fresh invite code.
func NewInviteCode() string {
	var b strings.Builder
	b.Grow(inviteCodeLength)
	for i := 0; i < inviteCodeLength; i++ {
		b.WriteByte(inviteCodeAlphabet[rand.IntN(len(inviteCodeAlphabet))])
	}
	return b.String()
}

// NormalizeInviteCode case-folds user input to the generation alphabet.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidInviteCode reports whether code has the generated shape.
func ValidInviteCode(code string) bool {
	if len(code) != inviteCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(inviteCodeAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}
