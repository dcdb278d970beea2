// Package crypt verifies passwords against the Unix crypt(3) hash formats
// found in adjunct and shadow-style map records: bcrypt ($2a$/$2b$/$2y$),
// md5-crypt ($1$), sha256-crypt ($5$) and sha512-crypt ($6$).
package crypt

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrUnsupportedScheme is returned when a hash string does not carry a
// recognized crypt(3) identifier prefix.
var ErrUnsupportedScheme = errors.New("crypt: unsupported hash scheme")

// Verify reports whether password matches hash, a crypt(3)-formatted
// string of the form "$id$salt$digest" (or a bcrypt hash, which embeds its
// own "$2a$cost$..." framing). It returns ErrUnsupportedScheme if hash
// does not carry a scheme this package implements.
func Verify(hash, password string) (bool, error) {
	switch {
	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
		if err != nil {
			if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	case strings.HasPrefix(hash, "$1$"):
		computed, err := md5Crypt(password, saltOf(hash, "$1$"))
		if err != nil {
			return false, err
		}
		return constantTimeEqualString(computed, hash), nil
	case strings.HasPrefix(hash, "$5$"):
		computed, err := sha256Crypt(password, hash)
		if err != nil {
			return false, err
		}
		return constantTimeEqualString(computed, hash), nil
	case strings.HasPrefix(hash, "$6$"):
		computed, err := sha512Crypt(password, hash)
		if err != nil {
			return false, err
		}
		return constantTimeEqualString(computed, hash), nil
	default:
		return false, ErrUnsupportedScheme
	}
}

// saltOf extracts the salt field (the segment between the id and the
// digest) from a "$id$salt$digest" formatted hash.
func saltOf(hash, id string) string {
	rest := strings.TrimPrefix(hash, id)
	if i := strings.Index(rest, "$"); i >= 0 {
		return rest[:i]
	}
	return rest
}

func constantTimeEqualString(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Hash produces a new crypt(3)-formatted hash for password under the
// requested scheme, for use when provisioning adjunct or shadow-style
// records. salt is the raw salt string (without the "$id$" framing); for
// "sha256"/"sha512" it may be prefixed with "rounds=N$" to request a
// non-default iteration count. scheme is one of "bcrypt", "md5", "sha256",
// "sha512".
func Hash(scheme, password, salt string) (string, error) {
	switch scheme {
	case "bcrypt":
		out, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return "", err
		}
		return string(out), nil
	case "md5":
		return md5Crypt(password, salt)
	case "sha256":
		return sha256Crypt(password, "$5$"+salt+"$")
	case "sha512":
		return sha512Crypt(password, "$6$"+salt+"$")
	default:
		return "", ErrUnsupportedScheme
	}
}
