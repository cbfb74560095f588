package middleware

import (
	"crypto/rsa"
	"fmt"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// NewAuth verifies the bearer token and exposes the caller's stable
// user identifier as the "user_id" local. Identity issuance itself is
// an external capability; this service only consumes it.
func NewAuth(alg, secret, publicKeyPath string) (fiber.Handler, error) {
	var key any
	switch strings.ToUpper(alg) {
	case "HS256":
		key = []byte(secret)
	case "RS256":
		pub, err := loadRSAPublicKey(publicKeyPath)
		if err != nil {
			return nil, err
		}
		key = pub
	default:
		return nil, fmt.Errorf("unsupported jwt alg %q", alg)
	}

	return func(c *fiber.Ctx) error {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing token"})
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{strings.ToUpper(alg)}))
		if err != nil || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid claims"})
		}
		userID, _ := claims["user_id"].(string)
		if userID == "" {
			if sub, _ := claims["sub"].(string); sub != "" {
				userID = sub
			}
		}
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "token carries no user id"})
		}

		c.Locals("user_id", userID)
		return c.Next()
	}, nil
}

func bearerToken(c *fiber.Ctx) string {
	h := c.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	// websocket clients cannot set headers from the browser
	return c.Query("token")
}

func loadRSAPublicKey(path string) (*rsa.PublicKey, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return jwt.ParseRSAPublicKeyFromPEM(pem)
}
