package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"

	"prompteval-server/internal/domain/credential"
	"prompteval-server/internal/infrastructure/auth"
	"prompteval-server/internal/infrastructure/logger"
)

const ownerContextKey = "ownerID"

// OwnerMiddleware resolves the caller to an owner id. Requests without a
// usable identity proceed as anonymous; endpoints that need a real owner
// (saved credentials) fail later with a typed error instead of at the door.
func OwnerMiddleware(verifier auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := credential.AnonymousOwner

		if token := bearerToken(c); token != "" {
			principal, err := verifier.Verify(c.Request.Context(), token)
			if err != nil {
				log := logger.GetLogger()
				log.Warn().Err(err).Msg("token verification failed")
			} else if principal != nil && principal.ID != "" {
				ownerID = principal.ID
			}
		}

		c.Set(ownerContextKey, ownerID)
		c.Next()
	}
}

// OwnerFromContext returns the owner id set by OwnerMiddleware.
func OwnerFromContext(c *gin.Context) string {
	if val, ok := c.Get(ownerContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}
	return credential.AnonymousOwner
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
