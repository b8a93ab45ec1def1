package web

import (
	"net/http"
	"time"

	"github.com/joestump/retroboard/internal/identity"
	"github.com/joestump/retroboard/internal/idgen"
)

const identityCookieName = "retro_identity"

// resolveIdentity reads the identity cookie and hashes it into the stable
// identity used throughout the domain. Cookie issuance is a peripheral
// concern (outside the scope of the identity port itself) but the server
// still needs to mint one so a browser hitting this API for the first
// time gets a usable identity instead of a hard failure.
func (s *Server) resolveIdentity(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(identityCookieName)
	req := identity.Request{}
	if err == nil && c.Value != "" {
		req.RawCookie = c.Value
		req.HasCookie = true
	}

	hash, ok := s.identity.IdentityOf(req)
	if ok {
		return hash
	}

	raw := idgen.New()
	http.SetCookie(w, &http.Cookie{
		Name:     identityCookieName,
		Value:    raw,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(365 * 24 * time.Hour),
	})
	hash, _ = s.identity.IdentityOf(identity.Request{RawCookie: raw, HasCookie: true})
	return hash
}
