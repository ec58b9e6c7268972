package middleware

import (
	"errors"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/saas/backoffice/internal/infrastructure/auth"
	"github.com/saas/backoffice/internal/infrastructure/logger"
	"github.com/saas/backoffice/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const (
	JWTClaimsKey  = "jwt_claims"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// JWTMiddlewareConfig configures bearer token verification. Tokens are
// minted by the identity provider; this service only reads them.
type JWTMiddlewareConfig struct {
	JWTService       *auth.JWTService
	SkipPaths        []string
	SkipPathPrefixes []string
	// OnError replaces the default 401 response
	OnError func(c *gin.Context, err error)
	Logger  *zap.Logger
}

// DefaultJWTConfig leaves health checks and the API docs open
func DefaultJWTConfig(jwtService *auth.JWTService) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		JWTService:       jwtService,
		SkipPaths:        []string{"/health", "/api/v1/health"},
		SkipPathPrefixes: []string{"/swagger"},
	}
}

func JWTAuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return JWTAuthMiddlewareWithConfig(DefaultJWTConfig(jwtService))
}

// JWTAuthMiddlewareWithConfig verifies the bearer token, then records its
// claims and the tenant or admin scope they grant on the request.
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if skipped(c.Request.URL.Path, cfg.SkipPaths, cfg.SkipPathPrefixes) {
			c.Next()
			return
		}

		token, err := bearerToken(c.GetHeader(AuthHeaderKey))
		if err != nil {
			handleAuthError(c, cfg, err)
			return
		}
		claims, err := cfg.JWTService.ValidateAccessToken(token)
		if err != nil {
			handleAuthError(c, cfg, err)
			return
		}

		c.Set(JWTClaimsKey, claims)
		setScope(c, claims.TenantID, claims.IsAdmin())
		c.Request = c.Request.WithContext(logger.WithSubject(c.Request.Context(), claims.Subject))

		if cfg.Logger != nil {
			cfg.Logger.Debug("Bearer token accepted",
				zap.String("subject", claims.Subject),
				zap.String("tenant_id", claims.TenantID),
				zap.Bool("admin", claims.IsAdmin()))
		}
		c.Next()
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errMissingCredentials
	}
	token, ok := strings.CutPrefix(header, BearerPrefix)
	if !ok {
		return "", auth.ErrInvalidToken
	}
	if token == "" {
		return "", errMissingCredentials
	}
	return token, nil
}

var errMissingCredentials = errors.New("missing credentials")

func skipped(path string, paths, prefixes []string) bool {
	if slices.Contains(paths, path) {
		return true
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func handleAuthError(c *gin.Context, cfg JWTMiddlewareConfig, err error) {
	if cfg.OnError != nil {
		cfg.OnError(c, err)
		return
	}
	if cfg.Logger != nil {
		cfg.Logger.Warn("Bearer token rejected", zap.Error(err), zap.String("path", c.Request.URL.Path))
	}

	code, msg := dto.ErrCodeUnauthorized, "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, msg = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		code, msg = dto.ErrCodeTokenInvalid, "Token is not yet valid"
	case errors.Is(err, auth.ErrMissingTenantID):
		code, msg = dto.ErrCodeTokenInvalid, "Token carries no tenant"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrInvalidClaims),
		errors.Is(err, auth.ErrInvalidIssuer):
		code, msg = dto.ErrCodeTokenInvalid, "Invalid token"
	}
	abortWithError(c, code, msg)
}

func abortWithError(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(dto.GetHTTPStatus(code),
		dto.NewErrorResponseWithRequestID(code, message, c.GetString(RequestIDKey)))
}

// GetJWTClaims returns the verified claims, nil on unauthenticated routes
func GetJWTClaims(c *gin.Context) *auth.Claims {
	claims, _ := c.Value(JWTClaimsKey).(*auth.Claims)
	return claims
}
