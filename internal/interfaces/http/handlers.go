package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/finance-approval/internal/application/effects"
	"github.com/garyjia/finance-approval/internal/application/service"
	"github.com/garyjia/finance-approval/internal/application/workflow"
	"github.com/garyjia/finance-approval/internal/domain/entity"
	domainwf "github.com/garyjia/finance-approval/internal/domain/workflow"
)

// Identity headers set by the upstream identity provider
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	// Category is the error class: VALIDATION, CONFLICT, POLICY, NOT_FOUND or INTERNAL
	Category string `json:"category,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CreateDocumentRequest is the intake body
type CreateDocumentRequest struct {
	Kind            string          `json:"kind" binding:"required"`
	ReferenceNumber string          `json:"reference_number"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentTerms    string          `json:"payment_terms"`
	VendorName      string          `json:"vendor_name" binding:"required"`
	Department      string          `json:"department"`
}

// ApplyActionRequest is the body of POST /documents/:id/actions
type ApplyActionRequest struct {
	Action           string `json:"action" binding:"required"`
	ExpectedVersion  int64  `json:"expected_version" binding:"required"`
	DigitalSignature string `json:"digital_signature"`
	Comments         string `json:"comments"`
	ChangeSummary    string `json:"change_summary"`
}

// PermittedActionsResponse lists what the caller may do
type PermittedActionsResponse struct {
	DocumentID string            `json:"document_id"`
	Role       domainwf.Role     `json:"role"`
	Actions    []domainwf.Action `json:"actions"`
}

// RaiseObservationRequest is the body of POST /documents/:id/observations
type RaiseObservationRequest struct {
	Text     string `json:"text" binding:"required"`
	Severity string `json:"severity" binding:"required"`
}

// AnswerObservationRequest is the body of PUT .../observations/:obsId/answer
type AnswerObservationRequest struct {
	Answer string `json:"answer" binding:"required"`
}

// ListRequest holds paging and filter query parameters
type ListRequest struct {
	Stage  string `form:"stage"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// ListDocuments handles GET /api/documents
func (h *Handlers) ListDocuments(c *gin.Context) {
	req, ok := h.bindList(c)
	if !ok {
		return
	}

	docs, err := h.services.Documents.List(c.Request.Context(), domainwf.Stage(strings.ToUpper(req.Stage)), req.Limit, req.Offset)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if docs == nil {
		docs = []*entity.Document{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: docs})
}

// CreateDocument handles POST /api/documents
func (h *Handlers) CreateDocument(c *gin.Context) {
	actorID, _, ok := h.actor(c, false)
	if !ok {
		return
	}

	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	doc, err := h.services.Documents.Create(c.Request.Context(), service.CreateDocumentRequest{
		Kind:            domainwf.Kind(strings.ToUpper(req.Kind)),
		ReferenceNumber: req.ReferenceNumber,
		Amount:          req.Amount,
		PaymentTerms:    req.PaymentTerms,
		VendorName:      req.VendorName,
		Department:      req.Department,
		CreatedBy:       actorID,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: doc})
}

// GetDocument handles GET /api/documents/:id
func (h *Handlers) GetDocument(c *gin.Context) {
	doc, err := h.services.Documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: doc})
}

// GetHistory handles GET /api/documents/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	history, err := h.services.Documents.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if history == nil {
		history = []entity.WorkflowEvent{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: history})
}

// PermittedActions handles GET /api/documents/:id/actions
func (h *Handlers) PermittedActions(c *gin.Context) {
	_, role, ok := h.actor(c, true)
	if !ok {
		return
	}

	id := c.Param("id")
	actions, err := h.services.Engine.PermittedActions(c.Request.Context(), id, role)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if actions == nil {
		actions = []domainwf.Action{}
	}
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    PermittedActionsResponse{DocumentID: id, Role: role, Actions: actions},
	})
}

// ApplyAction handles POST /api/documents/:id/actions
func (h *Handlers) ApplyAction(c *gin.Context) {
	actorID, role, ok := h.actor(c, true)
	if !ok {
		return
	}

	var req ApplyActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	outcome, err := h.services.Engine.ApplyAction(c.Request.Context(), workflow.ActionRequest{
		DocumentID:       c.Param("id"),
		ExpectedVersion:  req.ExpectedVersion,
		Action:           domainwf.Action(strings.ToUpper(req.Action)),
		ActorRole:        role,
		ActorID:          actorID,
		DigitalSignature: req.DigitalSignature,
		Comments:         req.Comments,
		ChangeSummary:    req.ChangeSummary,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: outcome})
}

// ListObservations handles GET /api/documents/:id/observations
func (h *Handlers) ListObservations(c *gin.Context) {
	observations, err := h.services.Observations.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if observations == nil {
		observations = []entity.Observation{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: observations})
}

// RaiseObservation handles POST /api/documents/:id/observations
func (h *Handlers) RaiseObservation(c *gin.Context) {
	actorID, role, ok := h.actor(c, true)
	if !ok {
		return
	}

	var req RaiseObservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}
	severity, err := entity.ParseSeverity(req.Severity)
	if err != nil {
		h.writeError(c, err)
		return
	}

	obs, err := h.services.Observations.Raise(c.Request.Context(), c.Param("id"), req.Text, severity, actorID, role)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: obs})
}

// AnswerObservation handles PUT /api/documents/:id/observations/:obsId/answer
func (h *Handlers) AnswerObservation(c *gin.Context) {
	actorID, _, ok := h.actor(c, true)
	if !ok {
		return
	}

	var req AnswerObservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	obs, err := h.services.Observations.Answer(c.Request.Context(), c.Param("id"), c.Param("obsId"), req.Answer, actorID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: obs})
}

// Settle handles POST /api/documents/:id/settle
func (h *Handlers) Settle(c *gin.Context) {
	actorID, _, ok := h.actor(c, true)
	if !ok {
		return
	}

	entry, err := h.services.Effects.Settle(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{
		"effect": effects.EffectAccountsPayableCreated,
		"entry":  entry,
	}})
}

// GetPayable handles GET /api/documents/:id/payable
func (h *Handlers) GetPayable(c *gin.Context) {
	entry, err := h.services.Documents.Payable(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: entry})
}

// ListPayables handles GET /api/payables
func (h *Handlers) ListPayables(c *gin.Context) {
	req, ok := h.bindList(c)
	if !ok {
		return
	}

	entries, err := h.services.Documents.ListPayables(c.Request.Context(), req.Limit, req.Offset)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if entries == nil {
		entries = []*entity.AccountsPayableEntry{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: entries})
}

// ExportDocument handles GET /api/documents/:id/export
func (h *Handlers) ExportDocument(c *gin.Context) {
	doc, err := h.services.Documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	data, err := h.services.Exporter.ApprovalSheet(doc)
	if err != nil {
		h.writeError(c, err)
		return
	}

	name := doc.ReferenceNumber
	if name == "" {
		name = doc.ID
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="approval_%s.xlsx"`, sanitizeFilename(name)))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ExportPayables handles GET /api/payables/export
func (h *Handlers) ExportPayables(c *gin.Context) {
	req, ok := h.bindList(c)
	if !ok {
		return
	}

	entries, err := h.services.Documents.ListPayables(c.Request.Context(), req.Limit, req.Offset)
	if err != nil {
		h.writeError(c, err)
		return
	}

	data, err := h.services.Exporter.PayableRegister(entries)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="payables.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

// actor reads the identity headers. The role is required and checked only when needRole is set.
func (h *Handlers) actor(c *gin.Context, needRole bool) (string, domainwf.Role, bool) {
	actorID := strings.TrimSpace(c.GetHeader(HeaderActorID))
	if actorID == "" {
		h.badRequest(c, HeaderActorID+" header is required")
		return "", "", false
	}

	role := domainwf.Role(strings.ToUpper(strings.TrimSpace(c.GetHeader(HeaderActorRole))))
	if needRole && !role.IsValid() {
		h.badRequest(c, fmt.Sprintf("%s header must be a known role, got %q", HeaderActorRole, role))
		return "", "", false
	}
	return actorID, role, true
}

func (h *Handlers) bindList(c *gin.Context) (ListRequest, bool) {
	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, "invalid query parameters")
		return req, false
	}
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = service.DefaultPageSize
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	return req, true
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{
		Success:  false,
		Error:    msg,
		Category: string(domainwf.CategoryValidation),
	})
}

// writeError maps an application error to its HTTP status
func (h *Handlers) writeError(c *gin.Context, err error) {
	category := domainwf.Classify(err)

	status := http.StatusInternalServerError
	msg := err.Error()
	switch category {
	case domainwf.CategoryValidation:
		status = http.StatusBadRequest
	case domainwf.CategoryConflict:
		status = http.StatusConflict
	case domainwf.CategoryPolicy:
		status = http.StatusUnprocessableEntity
	case domainwf.CategoryNotFound:
		status = http.StatusNotFound
	default:
		h.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
		msg = "internal error"
	}

	c.JSON(status, Response{
		Success:  false,
		Error:    msg,
		Category: string(category),
	})
}

func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
