package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"spamguard/internal/apperrors"
	"spamguard/internal/models"
)

// Context keys for the authenticated identity.
const (
	CtxAccountID = "account_id"
	CtxTier      = "tier"
	CtxRole      = "role"
)

// AuthMiddleware validates the bearer token minted by the auth subsystem and
// deposits the verified (account_id, tier, role) tuple into the gin context.
// The core never authenticates users itself.
func AuthMiddleware(jwtSecret []byte, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer <token>"})
			c.Abort()
			return
		}

		claims := &models.Claims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return jwtSecret, nil
		})

		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
				c.Abort()
				return
			}
			logger.Error("Invalid JWT token", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		if !token.Valid || claims.AccountID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		tier := claims.Tier
		if tier == "" {
			tier = models.TierFree
		}

		c.Set(CtxAccountID, claims.AccountID)
		c.Set(CtxTier, tier)
		c.Set(CtxRole, claims.Role)

		c.Next()
	}
}

// RequireAdmin rejects callers whose role is not admin.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxRole) != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": apperrors.ErrAuthorization.Error()})
			c.Abort()
			return
		}
		c.Next()
	}
}

// Identity reads the authenticated caller from the gin context.
func Identity(c *gin.Context) models.Identity {
	return models.Identity{
		AccountID: c.GetString(CtxAccountID),
		Tier:      c.GetString(CtxTier),
		Role:      c.GetString(CtxRole),
	}
}
