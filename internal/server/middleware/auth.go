package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/artbid/marketplace/internal/models"
)

const (
	ContextUserID   = "user_id"
	ContextUserRole = "user_role"
)

type authClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuth authenticates requests with a bearer token issued by the account
// service. The token subject is the caller's user id.
func JWTAuth(secret string) echo.MiddlewareFunc {
	key := []byte(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header format")
			}

			claims := &authClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return key, nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			if _, err := primitive.ObjectIDFromHex(claims.Subject); err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
			}

			c.Set(ContextUserID, claims.Subject)
			c.Set(ContextUserRole, claims.Role)
			return next(c)
		}
	}
}

// RequireAdmin gates the moderation endpoints. It must run after JWTAuth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(ContextUserRole).(string)
			if role != models.RoleAdmin {
				return echo.NewHTTPError(http.StatusUnauthorized, "admin access required")
			}
			return next(c)
		}
	}
}

// CurrentUserID returns the authenticated caller's id set by JWTAuth.
func CurrentUserID(c echo.Context) (primitive.ObjectID, error) {
	sub, _ := c.Get(ContextUserID).(string)
	id, err := primitive.ObjectIDFromHex(sub)
	if err != nil {
		return primitive.NilObjectID, echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	return id, nil
}
