package handlers

import (
	"github.com/gin-gonic/gin"

	"bakehouse/internal/domain/audit"
	"bakehouse/internal/infrastructure/http/v1/dto"
)

// AuditHandler returns the change history of an entity.
type AuditHandler struct {
	*BaseHandler
	reader audit.Reader
}

func NewAuditHandler(base *BaseHandler, reader audit.Reader) *AuditHandler {
	return &AuditHandler{BaseHandler: base, reader: reader}
}

// History handles GET /audit/:entity/:id?limit=
func (h *AuditHandler) History(c *gin.Context) {
	entityID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	entries, err := h.reader.GetEntityHistory(c.Request.Context(), c.Param("entity"), entityID, h.ParseIntQuery(c, "limit", 50))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.Items(entries))
}
