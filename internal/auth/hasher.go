// Package auth provides the password digest primitives used by the
// authentication service.
package auth

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
)

// HashPassword returns the base64-encoded SHA-512 digest of password. The
// digest is deterministic and unsalted; stored digests therefore stay valid
// across deployments, at the cost of being vulnerable to precomputed-table
// attacks. Any input is accepted, including the empty string.
func HashPassword(password string) string {
	sum := sha512.Sum512([]byte(password))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// VerifyPassword reports whether password hashes to digest. The comparison is
// constant time.
func VerifyPassword(password, digest string) bool {
	computed := HashPassword(password)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}
