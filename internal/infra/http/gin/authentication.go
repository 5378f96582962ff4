package ginserver

import (
	"errors"
	"log/slog"

	gin "github.com/gin-gonic/gin"

	"hotelbook/internal/app/faults"
	"hotelbook/internal/app/ledger"
	"hotelbook/internal/infra/security"
)

const principalContextKey = "hotelbook.principal"

type TokenVerifier interface {
	Verify(raw string) (security.Identity, error)
}

// AuthMiddleware resolves the bearer token when present. Routes decide on
// their own whether a caller is required.
type AuthMiddleware struct {
	Verifier TokenVerifier
	Logger   *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := security.BearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Verifier == nil {
		c.Next()
		return
	}
	id, err := m.Verifier.Verify(token)
	if err != nil {
		if m.Logger != nil && !errors.Is(err, security.ErrMissingToken) {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	c.Set(principalContextKey, id)
	c.Next()
}

func currentIdentity(c *gin.Context) (security.Identity, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return security.Identity{}, false
	}
	id, ok := val.(security.Identity)
	return id, ok
}

// requireRequester writes 401 and returns false when no caller was resolved.
func requireRequester(c *gin.Context) (ledger.Requester, bool) {
	id, ok := currentIdentity(c)
	if !ok || id.UserID == "" {
		renderError(c, faults.New(faults.Unauthenticated, "authentication required"))
		return ledger.Requester{}, false
	}
	return ledger.Requester{ID: id.UserID, Privileged: id.Privileged}, true
}

// requireAdmin additionally writes 403 for non-privileged callers.
func requireAdmin(c *gin.Context) (ledger.Requester, bool) {
	req, ok := requireRequester(c)
	if !ok {
		return req, false
	}
	if !req.Privileged {
		renderError(c, faults.New(faults.Forbidden, "administrator access required"))
		return ledger.Requester{}, false
	}
	return req, true
}
