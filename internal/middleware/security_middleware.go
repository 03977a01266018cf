package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// apiPolicy locks JSON responses down completely. Downloads get downloadPolicy
// so a browser can render an uploaded cover image inline.
const (
	apiPolicy      = "default-src 'none'; frame-ancestors 'none'"
	downloadPolicy = "default-src 'none'; img-src 'self'; style-src 'unsafe-inline'; frame-ancestors 'none'"
	hstsValue      = "max-age=31536000; includeSubDomains"
)

var baseHeaders = map[string]string{
	"X-Content-Type-Options":       "nosniff",
	"X-Frame-Options":              "DENY",
	"Referrer-Policy":              "no-referrer",
	"Permissions-Policy":           "camera=(), microphone=(), geolocation=(), payment=()",
	"Cross-Origin-Resource-Policy": "same-site",
}

// SecurityHeaders hardens every response. Paths under downloadPrefix keep
// browser caching and a policy that allows inline images; everything else is
// marked no-store.
func SecurityHeaders(downloadPrefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		for k, v := range baseHeaders {
			h.Set(k, v)
		}

		if downloadPrefix != "" && strings.HasPrefix(c.Request.URL.Path, downloadPrefix) {
			h.Set("Content-Security-Policy", downloadPolicy)
			h.Set("Cache-Control", "private, max-age=3600")
		} else {
			h.Set("Content-Security-Policy", apiPolicy)
			h.Set("Cache-Control", "no-store")
		}

		c.Next()
	}
}

// HSTSMiddleware is a no-op outside production.
func HSTSMiddleware(isProduction bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isProduction {
			c.Header("Strict-Transport-Security", hstsValue)
		}
		c.Next()
	}
}
