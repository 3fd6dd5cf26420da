package handlers

import (
	"context"
	"strconv"

	"github.com/dimitrije/washdesk-api/internal/models"
	"github.com/m1z23r/drift/pkg/drift"
)

type AuditHandler struct {
	audit AuditServiceInterface
}

func NewAuditHandler(audit AuditServiceInterface) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// Recent lists the audit entries of the caller's shop.
func (h *AuditHandler) Recent(c *drift.Context) {
	_, profile, ok := signedInProfile(c)
	if !ok {
		return
	}

	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.BadRequest("limit must be a positive number")
			return
		}
		limit = n
	}

	entries, err := h.audit.Recent(context.Background(), profile.ShopID, limit)
	if err != nil {
		c.InternalServerError("failed to load audit log")
		return
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	_ = c.JSON(200, entries)
}
