package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/guardline/workforce-service/internal/api/dto"
	"github.com/guardline/workforce-service/internal/auth"
	"github.com/guardline/workforce-service/internal/domain"
	"github.com/guardline/workforce-service/internal/service"
	apperrors "github.com/guardline/workforce-service/pkg/util"
)

// AuditHandler exposes the audit trail to managers.
type AuditHandler struct {
	service *service.AuditService
}

// NewAuditHandler constructs handler.
func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{service: auditService}
}

// List GET /audit. With entity_name and entity_id set it returns one entity's
// trail, otherwise the most recent entries.
func (h *AuditHandler) List(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("user required")
	}

	entityName := strings.TrimSpace(c.Query("entity_name"))
	entityID := strings.TrimSpace(c.Query("entity_id"))
	if (entityName == "") != (entityID == "") {
		return apperrors.NewValidationError(apperrors.CodeInvalidRequest,
			"entity_name and entity_id must be provided together", nil)
	}

	var (
		entries []domain.AuditEntry
		err     error
	)
	if entityName != "" {
		entries, err = h.service.ListByEntity(c.UserContext(), entityName, entityID)
	} else {
		entries, err = h.service.ListRecent(c.UserContext(), parseInt(c.Query("limit"), 50))
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": auditResponses(entries)})
}

// ListForUser GET /users/:id/audit.
func (h *AuditHandler) ListForUser(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("user required")
	}
	entries, err := h.service.ListForUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": auditResponses(entries)})
}

func auditResponses(entries []domain.AuditEntry) []dto.AuditEntryResponse {
	items := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.AuditEntryResponse{
			ID:         entry.ID,
			EntityName: entry.EntityName,
			EntityID:   entry.EntityID,
			Action:     entry.Action,
			ActorID:    entry.ActorID,
			OldValue:   entry.OldValue,
			NewValue:   entry.NewValue,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return items
}
