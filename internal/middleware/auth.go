package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aathi-11/university-voting-portal/internal/acl"
	"github.com/aathi-11/university-voting-portal/internal/service"
	"github.com/aathi-11/university-voting-portal/internal/util"
)

const (
	// IdentityKey is the gin context key holding the service.Identity.
	IdentityKey = "identity"
	// TokenCookie is the cookie checked when no bearer header is sent.
	TokenCookie = "vote_token"
)

// TokenValidator turns a bearer token into an identity.
type TokenValidator interface {
	Validate(token string) (service.Identity, error)
}

// TokenFromRequest looks for the session token in the Authorization header,
// then the token query parameter (downloads), then the cookie.
func TokenFromRequest(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if t := c.Query("token"); t != "" {
		return t
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil {
		return cookie
	}
	return ""
}

// Authenticate rejects requests without a valid session token and stores
// the identity in the context.
func Authenticate(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := v.Validate(TokenFromRequest(c))
		if err != nil {
			util.Error(c, http.StatusUnauthorized, util.CodeSession, "session missing or expired, please log in again")
			return
		}
		c.Set(IdentityKey, id)
		c.Next()
	}
}

// RequirePermission lets the request through only if the authenticated
// role may perform action. It must run after Authenticate.
func RequirePermission(action acl.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok {
			util.Error(c, http.StatusUnauthorized, util.CodeSession, "session missing or expired, please log in again")
			return
		}
		if !acl.IsAllowed(id.Role, action) {
			util.Error(c, http.StatusForbidden, util.CodeForbidden, acl.ErrForbidden.Error())
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the identity set by Authenticate.
func CurrentIdentity(c *gin.Context) (service.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return service.Identity{}, false
	}
	id, ok := v.(service.Identity)
	return id, ok
}
