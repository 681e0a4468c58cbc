// Package secret implements the at-rest obfuscation of account credentials.
//
// This is a reversible base64 encoding, NOT a security mechanism. It only
// keeps credentials out of casual view of the database file.
package secret

import "encoding/base64"

func Obfuscate(plaintext string) string {
	if plaintext == "" {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(plaintext))
}

// Reveal decodes an obfuscated value. Undecodable input yields an empty
// string rather than an error, matching the store's best-effort read contract.
func Reveal(encoded string) string {
	if encoded == "" {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return ""
	}
	return string(raw)
}
