package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/guardline/workforce-service/internal/api/dto"
	"github.com/guardline/workforce-service/internal/auth"
	"github.com/guardline/workforce-service/internal/domain"
	"github.com/guardline/workforce-service/internal/service"
	apperrors "github.com/guardline/workforce-service/pkg/util"
)

// SupervisorsHandler manages bulk supervisor reassignment.
type SupervisorsHandler struct {
	service *service.ReassignmentService
}

// NewSupervisorsHandler constructs handler.
func NewSupervisorsHandler(reassignmentService *service.ReassignmentService) *SupervisorsHandler {
	return &SupervisorsHandler{service: reassignmentService}
}

// Reassign POST /supervisors/reassign.
func (h *SupervisorsHandler) Reassign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.ReassignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError(apperrors.CodeInvalidRequest, "invalid payload", nil)
	}
	if fields, ok := req.Ok(); !ok {
		details := make(map[string]any, len(fields))
		for field, tag := range fields {
			details[field] = tag
		}
		return apperrors.NewValidationError(apperrors.CodeEmployeeEmailRequired,
			"employee_emails required", details)
	}

	assignment := domain.SupervisorAssignment{
		EmployeeEmails:  req.EmployeeEmails,
		SupervisorEmail: req.NewSupervisorEmail,
		RequestedAt:     time.Now().UTC(),
	}
	result, err := h.service.Reassign(c.UserContext(), principal.ExternalID(), assignment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": reassignResponse(result)})
}

func reassignResponse(result *domain.SupervisorAssignmentResult) dto.ReassignResponse {
	resp := dto.ReassignResponse{
		AffectedCount: result.AffectedCount,
		Targets:       userResponses(result.Targets),
	}
	if result.Supervisor != nil {
		supervisor := userResponse(result.Supervisor)
		resp.Supervisor = &supervisor
	}
	return resp
}
