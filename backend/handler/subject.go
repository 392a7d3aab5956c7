package handler

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/grantdesk/applicants/backend/model"
	"github.com/grantdesk/applicants/backend/service"
)

type SubjectHandler struct {
	store service.SubjectStore
}

func NewSubjectHandler(store service.SubjectStore) *SubjectHandler {
	return &SubjectHandler{store: store}
}

// SubjectRequest is the identity data of an applicant. Signature is a base64 encoded image.
type SubjectRequest struct {
	FirstName  string `json:"first_name" binding:"required"`
	LastName   string `json:"last_name" binding:"required"`
	Email      string `json:"email" binding:"omitempty,email"`
	Phone      string `json:"phone"`
	NationalID string `json:"national_id"`
	Address    string `json:"address"`
	Signature  string `json:"signature"`
}

type subjectResponse struct {
	*model.Subject
	HasSignature bool `json:"has_signature"`
}

func toResponse(s *model.Subject) subjectResponse {
	return subjectResponse{Subject: s, HasSignature: len(s.Signature) > 0}
}

// Create registers a new applicant
func (h *SubjectHandler) Create(c *gin.Context) {
	var req SubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	var signature []byte
	if req.Signature != "" {
		// data URLs from signature pads carry a "data:image/png;base64," prefix
		raw := req.Signature
		if _, after, ok := strings.Cut(raw, ","); ok && strings.HasPrefix(raw, "data:") {
			raw = after
		}
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			respondBadRequest(c, "Signature must be base64 encoded")
			return
		}
		signature = decoded
	}

	subject := &model.Subject{
		ID:         uuid.New().String(),
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		Email:      strings.TrimSpace(req.Email),
		Phone:      strings.TrimSpace(req.Phone),
		NationalID: strings.TrimSpace(req.NationalID),
		Address:    strings.TrimSpace(req.Address),
		Signature:  signature,
	}
	if err := h.store.SaveSubject(c.Request.Context(), subject); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toResponse(subject))
}

// Get returns one applicant
func (h *SubjectHandler) Get(c *gin.Context) {
	subject, err := h.store.GetSubject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(subject))
}

// List returns all applicants, newest first
func (h *SubjectHandler) List(c *gin.Context) {
	subjects, err := h.store.ListSubjects(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	result := make([]subjectResponse, 0, len(subjects))
	for _, s := range subjects {
		result = append(result, toResponse(s))
	}
	c.JSON(http.StatusOK, gin.H{"subjects": result, "total": len(result)})
}
