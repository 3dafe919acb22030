package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/geo-tasks/internal/auth"
)

const (
	// authenticationHeader is the legacy wire convention: the bearer
	// token travels in a bare "Authentication" header.
	authenticationHeader = "Authentication"

	tokenCtxKey = "auth_token"
)

func (h *handlerImpl) HandleAuthenticationMiddleware(c *gin.Context) {
	token := c.GetHeader(authenticationHeader)
	if token == "" {
		h.logger.Warn().Msg("authentication header required")
		abort(c, newForbiddenError(auth.ErrMissingCredential.Error()))
		return
	}

	c.Set(tokenCtxKey, token)
	c.Next()
}

func requesterToken(c *gin.Context) string {
	token, _ := c.Get(tokenCtxKey)
	s, _ := token.(string)
	return s
}
