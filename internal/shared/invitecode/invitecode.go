// Package invitecode encodes an admin account id into a shareable invite
// token. The transform is reversible identifier obfuscation, not an
// authorization token: possession of a code only names an admin, it does
// not grant anything by itself.
package invitecode

import (
	"encoding/base32"
	"errors"
	"strings"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// ErrInvalidCode is returned when a token cannot be decoded back to an id.
var ErrInvalidCode = errors.New("invalid invite code")

// Encode obfuscates an account id into a URL-safe token.
func Encode(id string) string {
	return strings.ToLower(encoding.EncodeToString([]byte(reverse(id))))
}

// Decode recovers the account id from a token produced by Encode.
func Decode(token string) (string, error) {
	raw, err := encoding.DecodeString(strings.ToUpper(token))
	if err != nil {
		return "", ErrInvalidCode
	}
	id := reverse(string(raw))
	if id == "" {
		return "", ErrInvalidCode
	}
	return id, nil
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
