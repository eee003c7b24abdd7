package middlewares

import (
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jonassync/licensing_backend/config"
)

// SecurityHeaders sets the response headers of policy. Empty values are skipped.
func SecurityHeaders(policy config.SecurityHeaderPolicy) gin.HandlerFunc {
	headers := map[string]string{
		"X-Frame-Options":         policy.FrameOptions,
		"X-Content-Type-Options":  policy.ContentTypeOptions,
		"Referrer-Policy":         policy.ReferrerPolicy,
		"Content-Security-Policy": policy.ContentSecurityPolicy,
		"Permissions-Policy":      policy.PermissionsPolicy,
	}
	if policy.HSTSMaxAge > 0 {
		headers["Strict-Transport-Security"] = fmt.Sprintf("max-age=%d; includeSubDomains", int64(policy.HSTSMaxAge.Seconds()))
	}
	return func(c *gin.Context) {
		for name, value := range headers {
			if value != "" {
				c.Header(name, value)
			}
		}
		c.Next()
	}
}

// CORS allows every origin outside production. In production only
// CORSAllowedOrigins are allowed; an empty list denies all cross-origin calls.
func CORS(opts config.ServerOptions) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	if opts.IsProduction() {
		if len(opts.CORSAllowedOrigins) == 0 {
			corsConfig.AllowOriginFunc = func(string) bool { return false }
		} else {
			corsConfig.AllowOrigins = opts.CORSAllowedOrigins
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", CorrelationIdHeader)
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", CorrelationIdHeader)
	corsConfig.AllowCredentials = true
	return cors.New(corsConfig)
}

// BodyLimit caps request bodies at maxBytes. Reads past the limit fail and
// handlers answer 413.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			if c.Request.ContentLength > maxBytes {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
				return
			}
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
