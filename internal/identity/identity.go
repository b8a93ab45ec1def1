// Package identity derives the durable per-request identity hash from the
// cookie already issued upstream. Cookie issuance, rotation, and transport
// (Set-Cookie headers, CORS, etc.) stay outside this package's concern.
package identity

import "github.com/joestump/retroboard/internal/hasher"

// Request is the minimal view of an inbound request this package needs:
// the raw cookie value, if one was presented.
type Request struct {
	RawCookie string
	HasCookie bool
}

// Identity resolves a Request to a durable identity hash.
type Identity interface {
	IdentityOf(req Request) (identityHash string, ok bool)
}

// FromHasher adapts a hasher.Hasher into an Identity port: the identity
// hash is simply the hash of the raw cookie value. A request with no
// cookie yields ok=false; issuing a fresh cookie for such requests is an
// upstream responsibility.
type FromHasher struct {
	Hasher hasher.Hasher
}

// IdentityOf returns the identity hash for req, or ok=false if no cookie
// was presented.
func (f FromHasher) IdentityOf(req Request) (string, bool) {
	if !req.HasCookie || req.RawCookie == "" {
		return "", false
	}
	return f.Hasher.Hash(req.RawCookie), true
}
