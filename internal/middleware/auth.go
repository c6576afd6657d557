package middleware

import (
	"net/http"
	"strings"
	"time"

	"smartsahuji/internal/auth"
	"smartsahuji/internal/config"
	"smartsahuji/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"

	principalKey = "principal"
)

// CookieSettings decides how token cookies are written.
type CookieSettings struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func NewCookieSettings(cfg config.AuthConfig) CookieSettings {
	return CookieSettings{Secure: cfg.SecureCookies, AccessTTL: cfg.AccessTokenTTL, RefreshTTL: cfg.RefreshTokenTTL}
}

// cross-origin deployments need SameSite=None, which browsers only accept
// together with Secure
func (s CookieSettings) sameSite() http.SameSite {
	if s.Secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func (s CookieSettings) SetTokenCookies(c *gin.Context, accessToken, refreshToken string) {
	c.SetSameSite(s.sameSite())
	c.SetCookie(AccessTokenCookie, accessToken, int(s.AccessTTL.Seconds()), "/", "", s.Secure, true)
	c.SetCookie(RefreshTokenCookie, refreshToken, int(s.RefreshTTL.Seconds()), "/", "", s.Secure, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func (s CookieSettings) ClearTokenCookies(c *gin.Context) {
	c.SetSameSite(s.sameSite())
	c.SetCookie(AccessTokenCookie, "", -1, "/", "", s.Secure, true)
	c.SetCookie(RefreshTokenCookie, "", -1, "/", "", s.Secure, true)
}

// bearerToken prefers the Authorization header and falls back to the cookie.
func bearerToken(c *gin.Context) (string, string) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", "Invalid authorization format. Expected 'Bearer <token>'"
		}
		return strings.TrimSpace(parts[1]), ""
	}
	if token, err := c.Cookie(AccessTokenCookie); err == nil && token != "" {
		return token, ""
	}
	return "", "Authorization is missing"
}

// Authenticate validates the access token and stores the caller's Principal
// on both the gin context and the request context.
func Authenticate(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, problem := bearerToken(c)
		if problem != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, problem))
			return
		}

		principal, err := tokens.Parse(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid or expired token"))
			return
		}

		c.Set(principalKey, principal)
		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), principal))
		c.Next()
	}
}

// RequireRole must run after Authenticate.
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}
		if !principal.HasRole(allowedRoles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the authenticated caller, if any.
func PrincipalFrom(c *gin.Context) (auth.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}
