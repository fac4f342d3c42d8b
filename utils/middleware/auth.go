package middleware

import (
	"crypto/rsa"
	"errors"
	"log"
	"strings"

	"github.com/aparaitech/lms-api/model"
	"github.com/aparaitech/lms-api/services/clerk"
	"github.com/aparaitech/lms-api/utils/policy"
	"github.com/aparaitech/lms-api/utils/response"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

// AuthMiddleware validates provider-issued session tokens and resolves
// them to local user records. Tokens are RS256 JWTs signed by the
// identity provider; the subject claim carries the provider user id.
type AuthMiddleware struct {
	publicKey *rsa.PublicKey
	clerk     *clerk.Client
	db        *gorm.DB
}

// NewAuthMiddleware creates a new auth middleware. publicKeyPEM is the
// provider's PEM-encoded RSA public key used to verify session tokens.
func NewAuthMiddleware(publicKeyPEM string, clerkClient *clerk.Client, db *gorm.DB) (*AuthMiddleware, error) {
	if publicKeyPEM == "" {
		return nil, errors.New("session token public key is not configured")
	}

	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, err
	}

	return &AuthMiddleware{
		publicKey: key,
		clerk:     clerkClient,
		db:        db,
	}, nil
}

// validateToken parses the session token and returns the provider user id
func (m *AuthMiddleware) validateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return m.publicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}))
	if err != nil {
		return "", err
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", errors.New("session token missing subject")
	}

	return subject, nil
}

// resolveUser loads the local user record for a provider user id,
// provisioning it from the provider on first sight.
func (m *AuthMiddleware) resolveUser(c *fiber.Ctx, userID string) (*model.User, error) {
	var user model.User
	err := m.db.First(&user, "id = ?", userID).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// First request from a user the webhook has not delivered yet.
	remote, err := m.clerk.GetUser(c.Context(), userID)
	if err != nil {
		return nil, err
	}

	user = model.User{
		ID:       remote.ID,
		Name:     remote.Name,
		Email:    remote.Email,
		ImageURL: remote.ImageURL,
		Role:     remote.Role,
	}
	if err := m.db.Create(&user).Error; err != nil {
		// Webhook may have raced us; reload rather than fail.
		if reloadErr := m.db.First(&user, "id = ?", userID).Error; reloadErr != nil {
			return nil, err
		}
	}

	log.Printf("Provisioned user %s from identity provider", userID)
	return &user, nil
}

// Required is middleware that requires a valid session token
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return response.Unauthorized(c, "Missing authorization token")
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return response.Unauthorized(c, "Invalid authorization format")
		}

		userID, err := m.validateToken(parts[1])
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return response.Unauthorized(c, "Token has expired")
			}
			return response.Unauthorized(c, "Invalid token")
		}

		user, err := m.resolveUser(c, userID)
		if err != nil {
			if errors.Is(err, clerk.ErrUserNotFound) {
				return response.Unauthorized(c, "User not found")
			}
			return response.InternalServerError(c, "Failed to load user")
		}

		c.Locals("user_id", user.ID)
		c.Locals("user_role", user.Role)
		c.Locals("user", user)

		return c.Next()
	}
}

// Optional is middleware that allows requests with or without a token.
// Invalid tokens are treated as anonymous rather than rejected.
func (m *AuthMiddleware) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Next()
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Next()
		}

		userID, err := m.validateToken(parts[1])
		if err != nil {
			return c.Next()
		}

		user, err := m.resolveUser(c, userID)
		if err != nil {
			return c.Next()
		}

		c.Locals("user_id", user.ID)
		c.Locals("user_role", user.Role)
		c.Locals("user", user)

		return c.Next()
	}
}

// RequireEducator requires the authenticated user to hold the educator
// role. Must run after Required.
func (m *AuthMiddleware) RequireEducator() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := GetUser(c)
		if !ok {
			return response.Forbidden(c, "Access denied")
		}

		if !policy.RequireRole(user, model.RoleEducator) {
			return response.Forbidden(c, "Educator access required")
		}

		return c.Next()
	}
}

// GetUserID extracts the provider user id from context
func GetUserID(c *fiber.Ctx) (string, bool) {
	userID := c.Locals("user_id")
	if userID == nil {
		return "", false
	}
	id, ok := userID.(string)
	return id, ok
}

// GetUser extracts the full user object from context
func GetUser(c *fiber.Ctx) (*model.User, bool) {
	user := c.Locals("user")
	if user == nil {
		return nil, false
	}
	u, ok := user.(*model.User)
	return u, ok
}
