package serving

import (
	"strconv"
	"strings"

	"github.com/jackwhelpton/fasthttp-routing/v2"
)

// CORSPolicy describes the cross-origin access granted on every response.
// Credentialed requests are never allowed.
type CORSPolicy struct {
	AllowOrigins  []string
	AllowMethods  []string
	AllowHeaders  []string
	ExposeHeaders []string
	// MaxAge is sent with preflight responses when greater than zero.
	MaxAge int
}

// DefaultCORSPolicy allows GET, POST and OPTIONS from any origin.
func DefaultCORSPolicy() *CORSPolicy {
	return &CORSPolicy{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "Authorization", "Accept"},
		ExposeHeaders: []string{"*"},
	}
}

// allowedOrigin returns the Access-Control-Allow-Origin value for a request
// from origin, or "" if the origin is not allowed.
func (p *CORSPolicy) allowedOrigin(origin string) string {
	for _, allowed := range p.AllowOrigins {
		if allowed == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

func (p *CORSPolicy) handler() routing.Handler {
	allowMethods := strings.Join(p.AllowMethods, ", ")
	allowHeaders := strings.Join(p.AllowHeaders, ", ")
	exposeHeaders := strings.Join(p.ExposeHeaders, ", ")
	maxAge := strconv.Itoa(p.MaxAge)

	return func(c *routing.Context) error {
		header := &c.Response.Header

		origin := p.allowedOrigin(string(c.Request.Header.Peek("Origin")))
		if origin != "" {
			header.Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				header.Add("Vary", "Origin")
			}
		}
		header.Set("Access-Control-Allow-Methods", allowMethods)
		if allowHeaders != "" {
			header.Set("Access-Control-Allow-Headers", allowHeaders)
		}
		if exposeHeaders != "" {
			header.Set("Access-Control-Expose-Headers", exposeHeaders)
		}
		if p.MaxAge > 0 && string(c.Method()) == "OPTIONS" {
			header.Set("Access-Control-Max-Age", maxAge)
		}

		return c.Next()
	}
}
