package middleware

import (
	"net/http"
	"strings"

	"xupload/internal/services"
	"xupload/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// TokenParser turns a bearer token into the caller identity.
type TokenParser interface {
	ParseAccessToken(token string) (services.Identity, error)
}

func AuthMiddleware(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c)
		if token == "" {
			// browsers cannot set headers on a websocket handshake
			token = c.Query("token")
		}
		id, err := parser.ParseAccessToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}

		ctx := services.WithIdentity(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
