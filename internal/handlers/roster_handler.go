package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/aeroclub/membership-backend/internal/middleware"
	"github.com/aeroclub/membership-backend/internal/models"
	"github.com/aeroclub/membership-backend/internal/services"
)

// RosterHandler handles roster import and audit HTTP requests
type RosterHandler struct {
	importService *services.ImportService
	verifier      *services.Verifier
	exporter      *services.ExportService
	store         services.MemberStore
	logger        *logrus.Logger
}

// NewRosterHandler creates a new RosterHandler
func NewRosterHandler(
	importService *services.ImportService,
	verifier *services.Verifier,
	exporter *services.ExportService,
	store services.MemberStore,
	logger *logrus.Logger,
) *RosterHandler {
	return &RosterHandler{
		importService: importService,
		verifier:      verifier,
		exporter:      exporter,
		store:         store,
		logger:        logger,
	}
}

// ImportRoster ingests a roster payload and runs the import pipeline.
// POST /api/v1/roster/import
func (h *RosterHandler) ImportRoster(c *gin.Context) {
	caller, ok := middleware.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "missing caller context",
		})
		return
	}

	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
		})
		return
	}

	reconcile := false
	if flag, exists := payload["reconcile"]; exists {
		if b, isBool := flag.(bool); isBool {
			reconcile = b
		}
	}

	// The HTTP surface has no streaming channel; progress events are
	// logged per chunk instead.
	sink := func(event models.ProgressEvent) {
		h.logger.WithFields(logrus.Fields{
			"stage":     event.Stage,
			"processed": event.Processed,
			"total":     event.Total,
		}).Info(event.Message)
	}

	result := h.importService.Import(caller.SecurityLevel, payload, services.ImportOptions{
		Reconcile:  reconcile,
		Actor:      caller.MemberKey,
		OnProgress: sink,
	})

	c.JSON(statusForResult(result), result)
}

// VerifyStore runs the post-import integrity audit.
// GET /api/v1/roster/verify
func (h *RosterHandler) VerifyStore(c *gin.Context) {
	report, err := h.verifier.Verify()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "verification_failed",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"clean":   report.Clean(),
		"report":  report,
	})
}

// ClearRequest represents a clear-all request
type ClearRequest struct {
	Destructive bool `json:"destructive"`
}

// ClearStore empties the member collection, logically or physically.
// POST /api/v1/roster/clear
func (h *RosterHandler) ClearStore(c *gin.Context) {
	caller, ok := middleware.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "missing caller context",
		})
		return
	}

	var req ClearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
		})
		return
	}

	result := h.importService.ClearAll(caller.SecurityLevel, req.Destructive, caller.MemberKey)
	c.JSON(statusForResult(result), result)
}

// ReassignRoleRequest represents a role reassignment request
type ReassignRoleRequest struct {
	ExternalKey string `json:"external_key" binding:"required"`
	Role        string `json:"role" binding:"required"`
}

// ReassignRole changes one member's role (security level follows the role).
// POST /api/v1/members/reassign-role
func (h *RosterHandler) ReassignRole(c *gin.Context) {
	caller, ok := middleware.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "missing caller context",
		})
		return
	}

	var req ReassignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
		})
		return
	}

	err := h.importService.ReassignRole(caller.SecurityLevel, req.ExternalKey, models.Role(req.Role), caller.MemberKey)
	if err != nil {
		status := http.StatusInternalServerError
		code := "reassign_failed"
		switch {
		case errors.Is(err, services.ErrPermissionDenied):
			status = http.StatusForbidden
			code = "permission_denied"
		case errors.Is(err, services.ErrMemberNotFound):
			status = http.StatusNotFound
			code = "member_not_found"
		}
		c.JSON(status, gin.H{
			"error":   code,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetStats recomputes statistics over the current store contents.
// GET /api/v1/members/stats
func (h *RosterHandler) GetStats(c *gin.Context) {
	members, err := h.store.ListAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "stats_failed",
			"message": err.Error(),
		})
		return
	}

	stats := models.NewStatisticsSummary()
	for _, m := range members {
		stats.Observe(m)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"statistics": stats,
	})
}

// ExportMembers renders the collection as JSON or CSV.
// GET /api/v1/members/export?format=csv|json
func (h *RosterHandler) ExportMembers(c *gin.Context) {
	format := c.DefaultQuery("format", "json")

	switch format {
	case "json":
		data, err := h.exporter.ExportJSON()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "export_failed",
				"message": err.Error(),
			})
			return
		}
		c.Header("Content-Disposition", `attachment; filename="members.json"`)
		c.Data(http.StatusOK, "application/json", data)
	case "csv":
		data, err := h.exporter.ExportCSV()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "export_failed",
				"message": err.Error(),
			})
			return
		}
		c.Header("Content-Disposition", `attachment; filename="members.csv"`)
		c.Data(http.StatusOK, "text/csv", data)
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "format must be json or csv",
		})
	}
}

func statusForResult(result *models.ImportResult) int {
	if result.Success {
		return http.StatusOK
	}
	switch result.Error {
	case "permission_denied":
		return http.StatusForbidden
	case "invalid_payload", "validation_error":
		return http.StatusBadRequest
	case "import_in_progress":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
