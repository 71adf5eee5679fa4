package webservice

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const orgIDKey = "orgID"

// Claims is the only supported token shape. OrganizationID scopes
// every request, a token without it is rejected.
type Claims struct {
	jwt.RegisteredClaims

	OrganizationID string `json:"org_id"`
}

// JWTAuth checks the Bearer token and puts the organization ID into the echo context
func JWTAuth(secret string) echo.MiddlewareFunc {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "no authorization header")
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenStr == authHeader {
				return echo.NewHTTPError(http.StatusUnauthorized, "expected bearer token")
			}
			var claims Claims
			_, err := parser.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
				return key, nil
			})
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if claims.OrganizationID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "no organization in token")
			}
			c.Set(orgIDKey, claims.OrganizationID)
			return next(c)
		}
	}
}

// IssueToken makes a signed organization token, used by tests and dev tooling
func IssueToken(secret, orgID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		OrganizationID: orgID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	res, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("can't sign token: %w", err)
	}
	return res, nil
}

func orgID(c echo.Context) string {
	res, _ := c.Get(orgIDKey).(string)
	return res
}
