package handlers

import (
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/m1z23r/drift/pkg/drift"
)

// APIDocumentSource defines the methods used by handlers from APIDocService
type APIDocumentSource interface {
	Document() *openapi3.T
}

type DocsHandler struct {
	docs APIDocumentSource
}

func NewDocsHandler(docs APIDocumentSource) *DocsHandler {
	return &DocsHandler{docs: docs}
}

func (h *DocsHandler) OpenAPI(c *drift.Context) {
	_ = c.JSON(200, h.docs.Document())
}
