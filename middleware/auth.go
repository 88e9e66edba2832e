package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"sparkshare-api/models"
	"sparkshare-api/services"
	"sparkshare-api/utils"
)

const (
	UserIDKey    = "user_id"
	UserEmailKey = "user_email"
)

// ProfileSyncer keeps the profile directory in step with token claims.
type ProfileSyncer interface {
	EnsureProfile(ctx context.Context) error
}

// AuthMiddleware verifies the HS256 bearer token and places the caller's
// identity on the request context. Claim names match the tokens issued by
// the identity provider: user_id, email, name and picture.
func AuthMiddleware(jwtSecret string, profiles ProfileSyncer, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			utils.SendError(c, http.StatusUnauthorized, "Authorization header required")
			c.Abort()
			return
		}

		identity, err := ParseToken(tokenString, jwtSecret)
		if err != nil {
			log.WithError(err).Debug("rejected token")
			utils.SendError(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(UserIDKey, identity.UID)
		c.Set(UserEmailKey, identity.Email)
		ctx := services.WithIdentity(c.Request.Context(), identity)
		c.Request = c.Request.WithContext(ctx)

		if profiles != nil {
			if err := profiles.EnsureProfile(ctx); err != nil {
				log.WithError(err).WithField("user_id", identity.UID).Warn("profile sync failed")
			}
		}

		c.Next()
	}
}

// ParseToken validates the signature and expiry and extracts the identity.
func ParseToken(tokenString, secret string) (*models.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}

	identity := &models.Identity{
		UID:         stringClaim(claims, "user_id"),
		Email:       utils.NormalizeEmail(stringClaim(claims, "email")),
		DisplayName: stringClaim(claims, "name"),
		PhotoURL:    stringClaim(claims, "picture"),
	}
	if identity.UID == "" || identity.Email == "" {
		return nil, errors.New("token is missing user_id or email")
	}
	return identity, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}
