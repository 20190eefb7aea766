package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/zolijavos/KGC-3-sub017/internal/dto"
	"github.com/zolijavos/KGC-3-sub017/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SessionHandler struct {
	svc      service.SessionService
	zreports service.ZReportService
}

func NewSessionHandler(svc service.SessionService, zreports service.ZReportService) *SessionHandler {
	return &SessionHandler{svc: svc, zreports: zreports}
}

// Open godoc
// @Summary Open a cash register session
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.OpenSessionRequest true "Opening data"
// @Success 201 {object} dto.SessionResponse
// @Failure 409 {object} apperror.APIError
// @Router /v1/sessions [post]
func (h *SessionHandler) Open(c *gin.Context) {
	var req dto.OpenSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	operatorID, tenantID, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.svc.Open(c.Request.Context(), tenantID, operatorID, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Suspend godoc
// @Summary Suspend an open session (shift handover)
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} dto.SessionResponse
// @Failure 409 {object} apperror.APIError
// @Router /v1/sessions/{id}/suspend [post]
func (h *SessionHandler) Suspend(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	operatorID, tenantID, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.svc.Suspend(c.Request.Context(), tenantID, operatorID, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Resume godoc
// @Summary Resume a suspended session
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} dto.SessionResponse
// @Failure 409 {object} apperror.APIError
// @Router /v1/sessions/{id}/resume [post]
func (h *SessionHandler) Resume(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	operatorID, tenantID, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.svc.Resume(c.Request.Context(), tenantID, operatorID, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Close godoc
// @Summary Close a session with the counted drawer balance
// @Description Returns 200 when the session closes cleanly, 202 when the
// @Description variance exceeds tolerance and a manager must approve.
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CloseSessionRequest true "Counted closing balance"
// @Success 200 {object} dto.CloseSessionResponse
// @Success 202 {object} dto.CloseSessionResponse
// @Failure 409 {object} apperror.APIError
// @Router /v1/sessions/close [post]
func (h *SessionHandler) Close(c *gin.Context) {
	var req dto.CloseSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	operatorID, tenantID, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.svc.Close(c.Request.Context(), tenantID, operatorID, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	status := http.StatusOK
	if resp.PendingApproval {
		status = http.StatusAccepted
	}
	c.JSON(status, resp)
}

// ApproveVariance godoc
// @Summary Approve an out-of-tolerance closing variance
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param body body dto.VarianceDecisionRequest true "Approval note"
// @Success 200 {object} dto.SessionResponse
// @Failure 409 {object} apperror.APIError
// @Router /v1/sessions/{id}/approve [post]
func (h *SessionHandler) ApproveVariance(c *gin.Context) {
	h.decide(c, h.svc.ApproveVariance)
}

// RejectVariance godoc
// @Summary Reject an out-of-tolerance closing variance
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param body body dto.VarianceDecisionRequest true "Rejection note"
// @Success 200 {object} dto.SessionResponse
// @Failure 409 {object} apperror.APIError
// @Router /v1/sessions/{id}/reject [post]
func (h *SessionHandler) RejectVariance(c *gin.Context) {
	h.decide(c, h.svc.RejectVariance)
}

// ResubmitVariance godoc
// @Summary Resubmit a rejected variance with a corrected note
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param body body dto.VarianceDecisionRequest true "Corrected explanation"
// @Success 200 {object} dto.SessionResponse
// @Failure 409 {object} apperror.APIError
// @Router /v1/sessions/{id}/resubmit [post]
func (h *SessionHandler) ResubmitVariance(c *gin.Context) {
	h.decide(c, h.svc.ResubmitVariance)
}

// Get godoc
// @Summary Get one session
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} dto.SessionResponse
// @Failure 404 {object} apperror.APIError
// @Router /v1/sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	_, tenantID, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetActive godoc
// @Summary Get the active session at a location
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param location_id path string true "Location ID"
// @Success 200 {object} dto.SessionResponse
// @Failure 404 {object} apperror.APIError
// @Router /v1/sessions/active/{location_id} [get]
func (h *SessionHandler) GetActive(c *gin.Context) {
	locationID, ok := pathUUID(c, "location_id")
	if !ok {
		return
	}
	_, tenantID, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.svc.GetActive(c.Request.Context(), tenantID, locationID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// List godoc
// @Summary List sessions, newest first
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} dto.SessionListResponse
// @Router /v1/sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	_, tenantID, ok := actor(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	resp, err := h.svc.List(c.Request.Context(), tenantID, page, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetZReport godoc
// @Summary Get the Z-report of a closed session
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} dto.ZReportResponse
// @Failure 404 {object} apperror.APIError
// @Router /v1/sessions/{id}/zreport [get]
func (h *SessionHandler) GetZReport(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	_, tenantID, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.zreports.GetBySession(c.Request.Context(), tenantID, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DownloadZReportPDF godoc
// @Summary Download the rendered Z-report PDF
// @Tags sessions
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {file} binary
// @Failure 404 {object} apperror.APIError
// @Failure 409 {object} apperror.APIError
// @Router /v1/sessions/{id}/zreport/pdf [get]
func (h *SessionHandler) DownloadZReportPDF(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	_, tenantID, ok := actor(c)
	if !ok {
		return
	}
	path, err := h.zreports.PDFPath(c.Request.Context(), tenantID, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.FileAttachment(path, "zreport.pdf")
}

type varianceDecision func(ctx context.Context, tenantID, actorID, sessionID uuid.UUID, note string) (*dto.SessionResponse, error)

func (h *SessionHandler) decide(c *gin.Context, fn varianceDecision) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.VarianceDecisionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actorID, tenantID, ok := actor(c)
	if !ok {
		return
	}
	resp, err := fn(c.Request.Context(), tenantID, actorID, id, req.Note)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
