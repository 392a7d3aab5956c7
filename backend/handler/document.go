package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/grantdesk/applicants/backend/model"
	"github.com/grantdesk/applicants/backend/service"
)

// DocumentPipeline is the document lifecycle served over HTTP; service.DocumentService implements it
type DocumentPipeline interface {
	Generate(ctx context.Context, subjectID string, kind model.DocumentKind) (*service.Document, error)
	Download(ctx context.Context, subjectID string, kind model.DocumentKind) (*service.Document, error)
	Reset(ctx context.Context, subjectID string, kind model.DocumentKind) error
	Sign(ctx context.Context, subjectID string, kind model.DocumentKind) (model.DocumentState, error)
	States(ctx context.Context, subjectID string) (map[model.DocumentKind]model.DocumentState, error)
}

type DocumentHandler struct {
	docs DocumentPipeline
}

func NewDocumentHandler(docs DocumentPipeline) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

// kindParam resolves the :kind route parameter, answering 400 when it is unknown
func kindParam(c *gin.Context) (model.DocumentKind, bool) {
	kind, ok := model.ParseKind(c.Param("kind"))
	if !ok {
		respondError(c, service.ErrUnknownKind)
		return "", false
	}
	return kind, true
}

// Generate produces the document and returns it as an attachment
func (h *DocumentHandler) Generate(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}

	doc, err := h.docs.Generate(c.Request.Context(), c.Param("id"), kind)
	if err != nil {
		respondError(c, err)
		return
	}
	deliver(c, doc)
}

// Download returns the stored document
func (h *DocumentHandler) Download(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}

	doc, err := h.docs.Download(c.Request.Context(), c.Param("id"), kind)
	if err != nil {
		respondError(c, err)
		return
	}
	deliver(c, doc)
}

// Reset deletes the stored document and its state
func (h *DocumentHandler) Reset(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}

	if err := h.docs.Reset(c.Request.Context(), c.Param("id"), kind); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Document reset", "kind": kind})
}

// Sign marks a generated document as signed
func (h *DocumentHandler) Sign(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}

	state, err := h.docs.Sign(c.Request.Context(), c.Param("id"), kind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kind": kind, "state": state})
}

// Status lists the state of every document kind of a subject
func (h *DocumentHandler) Status(c *gin.Context) {
	states, err := h.docs.States(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	documents := make([]gin.H, 0, len(model.AllKinds))
	for _, kind := range model.AllKinds {
		documents = append(documents, gin.H{
			"kind":  kind,
			"label": kind.Label(),
			"state": states[kind],
		})
	}
	c.JSON(http.StatusOK, gin.H{"subject_id": c.Param("id"), "documents": documents})
}
