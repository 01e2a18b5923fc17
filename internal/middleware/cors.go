package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// wildcardOrigin matches origins of the form scheme + one subdomain label + suffix
type wildcardOrigin struct {
	scheme string
	suffix string
}

// parseWildcardOrigin parses patterns like "https://*.example.com".
// Returns nil for exact origins and malformed patterns.
func parseWildcardOrigin(pattern string) *wildcardOrigin {
	schemeEnd := strings.Index(pattern, "://")
	if schemeEnd <= 0 {
		return nil
	}
	scheme := pattern[:schemeEnd+3]
	host := pattern[schemeEnd+3:]

	if !strings.HasPrefix(host, "*.") || strings.Count(host, "*") != 1 {
		return nil
	}
	suffix := host[1:]

	// Require at least two labels after the wildcard
	if strings.Count(suffix, ".") < 2 {
		return nil
	}
	return &wildcardOrigin{scheme: scheme, suffix: suffix}
}

func (w *wildcardOrigin) matches(origin string) bool {
	if !strings.HasPrefix(origin, w.scheme) {
		return false
	}
	host := strings.TrimPrefix(origin, w.scheme)
	if !strings.HasSuffix(host, w.suffix) {
		return false
	}
	label := strings.TrimSuffix(host, w.suffix)
	return label != "" && !strings.ContainsAny(label, "./:")
}

// CORS middleware to handle cross-origin requests.
// An empty list or "*" allows every origin. Entries may use a single leading
// subdomain wildcard such as "https://*.lora.pages.dev".
func CORS(origins []string) gin.HandlerFunc {
	allowAll := len(origins) == 0
	exact := make(map[string]bool)
	var wildcards []*wildcardOrigin
	for _, o := range origins {
		o = strings.TrimSpace(o)
		switch {
		case o == "*":
			allowAll = true
		case o == "":
		default:
			if w := parseWildcardOrigin(o); w != nil {
				wildcards = append(wildcards, w)
				continue
			}
			exact[o] = true
		}
	}

	isAllowed := func(origin string) bool {
		if exact[origin] {
			return true
		}
		for _, w := range wildcards {
			if w.matches(origin) {
				return true
			}
		}
		return false
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if allowAll {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else if origin != "" && isAllowed(origin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Add("Vary", "Origin")
		} else if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(403)
			return
		}

		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID, Idempotency-Key")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
