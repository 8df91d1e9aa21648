package auth

import (
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/guardline/workforce-service/internal/domain"
	"github.com/guardline/workforce-service/internal/service"
	apperrors "github.com/guardline/workforce-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	User   *domain.User
	Claims *Claims
}

// ExternalID returns the caller's identity-provider subject.
func (p *Principal) ExternalID() string {
	return p.Claims.ExternalID()
}

// AuthMiddleware validates bearer tokens and loads principals. Unknown
// subjects are provisioned on the spot so a first authenticated request is
// enough to exist in the directory.
type AuthMiddleware struct {
	tokens *TokenManager
	users  *service.UserService
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users *service.UserService) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	user, err := m.users.EnsureProvisioned(c.UserContext(), service.ProvisionInput{
		ExternalID: claims.ExternalID(),
		Email:      claims.Email,
		FirstName:  claims.GivenName,
		LastName:   claims.FamilyName,
	})
	if err != nil {
		return err
	}

	c.Locals(principalKey, &Principal{User: user, Claims: claims})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// PrincipalFromConn retrieves the authenticated entity inside a websocket
// handler, where locals arrive through the upgraded connection.
func PrincipalFromConn(conn *websocket.Conn) (*Principal, bool) {
	val := conn.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
