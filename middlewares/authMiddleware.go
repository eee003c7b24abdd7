package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/models"
	"github.com/jonassync/licensing_backend/utils"
)

type authString string

// AuthMiddleware attaches the user of a valid bearer token to the request
// context. Requests without an Authorization header pass through untouched;
// RequireAuth decides whether a route needs one.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")
		if auth == "" {
			c.Next()
			return
		}

		token, ok := bearerToken(auth)
		if !ok {
			rejectToken(c)
			return
		}
		validate, err := utils.JwtValidate(token)
		if err != nil || !validate.Valid {
			rejectToken(c)
			return
		}
		customClaim, ok := validate.Claims.(*utils.JwtCustomClaim)
		if !ok || customClaim.ID <= 0 {
			rejectToken(c)
			return
		}

		ctx := c.Request.Context()
		revoked, err := models.IsTokenRevoked(ctx, token)
		if err != nil {
			config.LogError(config.GetLogger(), "middlewares", "AuthMiddleware", "checking token revocation", nil, err)
			rejectToken(c)
			return
		}
		if revoked {
			rejectToken(c)
			return
		}

		ctx = context.WithValue(ctx, authString("auth"), customClaim)
		ctx = utils.SetTokenInContext(ctx, token)
		ctx = utils.SetOwnerIdInContext(ctx, customClaim.ID)
		ctx = utils.SetUserIdInContext(ctx, customClaim.ID)
		ctx = utils.SetUsernameInContext(ctx, customClaim.Username)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAuth rejects requests AuthMiddleware did not authenticate.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CtxValue(c.Request.Context()) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Authentication required",
			})
			return
		}
		c.Next()
	}
}

// CtxValue returns the claims of the authenticated user, nil when anonymous.
func CtxValue(ctx context.Context) *utils.JwtCustomClaim {
	raw, _ := ctx.Value(authString("auth")).(*utils.JwtCustomClaim)
	return raw
}

func bearerToken(header string) (string, bool) {
	const bearer = "Bearer "
	if len(header) <= len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearer):])
	return token, token != ""
}

func rejectToken(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "unauthorized",
		"message": "Invalid or expired token",
	})
}
