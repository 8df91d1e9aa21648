package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/guardline/workforce-service/internal/api/dto"
	"github.com/guardline/workforce-service/internal/auth"
	"github.com/guardline/workforce-service/internal/domain"
	"github.com/guardline/workforce-service/internal/repository"
	"github.com/guardline/workforce-service/internal/service"
	apperrors "github.com/guardline/workforce-service/pkg/util"
)

// UsersHandler manages directory endpoints.
type UsersHandler struct {
	service *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{service: userService}
}

// Me GET /users/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	return c.JSON(fiber.Map{"data": userResponse(principal.User)})
}

// Get GET /users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	user, err := h.service.Get(c.UserContext(), principal.ExternalID(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// List GET /users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	filter, err := parseUserFilter(c)
	if err != nil {
		return err
	}
	users, err := h.service.List(c.UserContext(), principal.ExternalID(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponses(users)})
}

// Reports GET /users/:id/reports.
func (h *UsersHandler) Reports(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	reports, err := h.service.Reports(c.UserContext(), principal.ExternalID(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponses(reports)})
}

// AssignableRoles GET /users/roles/assignable.
func (h *UsersHandler) AssignableRoles(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	roles, err := h.service.AssignableRoles(c.UserContext(), principal.ExternalID())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AssignableRolesResponse{Roles: roles}})
}

// ChangeRole PATCH /users/:id/role.
func (h *UsersHandler) ChangeRole(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.RoleChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError(apperrors.CodeInvalidRequest, "invalid payload", nil)
	}

	change, err := roleChangeFromRequest(req)
	if err != nil {
		return err
	}
	user, err := h.service.ChangeRole(c.UserContext(), principal.ExternalID(), c.Params("id"), change)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// Deactivate DELETE /users/:id. Retires the record exactly like an explicit
// unassign; the row stays behind for the audit trail.
func (h *UsersHandler) Deactivate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	user, err := h.service.ChangeRole(c.UserContext(), principal.ExternalID(), c.Params("id"), domain.Unassign())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

func roleChangeFromRequest(req dto.RoleChangeRequest) (domain.RoleChange, error) {
	if req.Unassign {
		if req.Role != "" {
			return domain.RoleChange{}, apperrors.NewValidationError(apperrors.CodeInvalidRole,
				"role and unassign are mutually exclusive", nil)
		}
		return domain.Unassign(), nil
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return domain.RoleChange{}, apperrors.NewValidationError(apperrors.CodeInvalidRole,
			"unknown role", map[string]any{"role": req.Role})
	}
	return domain.SetRole(role), nil
}

func parseUserFilter(c *fiber.Ctx) (repository.UserFilter, error) {
	filter := repository.UserFilter{}
	if roleStr := strings.TrimSpace(c.Query("role")); roleStr != "" {
		role, err := domain.ParseRole(roleStr)
		if err != nil {
			return filter, apperrors.NewValidationError(apperrors.CodeInvalidRole,
				"unknown role", map[string]any{"role": roleStr})
		}
		filter.Role = &role
	}
	if supervisorID := strings.TrimSpace(c.Query("supervisor_id")); supervisorID != "" {
		filter.SupervisorID = &supervisorID
	}
	filter.IncludeDeleted = c.Query("include_deleted") == "true"
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:           user.ID,
		ExternalID:   user.ExternalID,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		FullName:     user.FullName(),
		Role:         user.Role,
		SupervisorID: user.SupervisorID,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
		DeletedAt:    user.DeletedAt,
	}
}

func userResponses(users []domain.User) []dto.UserResponse {
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, userResponse(&users[i]))
	}
	return items
}
