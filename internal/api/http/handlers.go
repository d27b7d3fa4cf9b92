package http

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/sorter-station-service/internal/application"
	apperrors "github.com/wms-platform/sorter-station-service/pkg/errors"
	"github.com/wms-platform/sorter-station-service/pkg/logging"
	"github.com/wms-platform/sorter-station-service/pkg/middleware"
)

const defaultAuditLimit = 50

// SnapshotValidator checks a raw station state document
type SnapshotValidator interface {
	Validate(raw []byte) error
}

// Handlers holds the HTTP handlers for the sorter station
type Handlers struct {
	service   *application.StationService
	snapshots SnapshotValidator
	logger    *logging.Logger
}

// NewHandlers creates a new Handlers instance. Pushed snapshots are checked
// with snapshots, the validator used for fetched ones.
func NewHandlers(service *application.StationService, snapshots SnapshotValidator, logger *logging.Logger) *Handlers {
	middleware.InitValidator()
	return &Handlers{service: service, snapshots: snapshots, logger: logger}
}

func (h *Handlers) respondError(c *gin.Context, err error) {
	middleware.NewErrorResponder(c, h.logger.Logger).
		WithMapper(application.MapError).
		RespondWithError(err)
}

// ConnectRequest binds the station session to a station barcode
type ConnectRequest struct {
	StationBarcode string `json:"stationBarcode" binding:"required,scan_code"`
}

// Connect handles POST /api/v1/station/connect
func (h *Handlers) Connect(c *gin.Context) {
	var req ConnectRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		h.respondError(c, appErr)
		return
	}

	station, err := h.service.Connect(c.Request.Context(), req.StationBarcode)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, station)
}

// Disconnect handles DELETE /api/v1/station
func (h *Handlers) Disconnect(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Disconnect(c.Request.Context()))
}

// Refresh handles POST /api/v1/station/refresh
func (h *Handlers) Refresh(c *gin.Context) {
	station, err := h.service.Refresh(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, station)
}

// PushSnapshot handles PUT /api/v1/station/snapshot
func (h *Handlers) PushSnapshot(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		h.respondError(c, apperrors.ErrBadRequest("failed to read request body"))
		return
	}
	if err := h.snapshots.Validate(raw); err != nil {
		h.respondError(c, apperrors.ErrValidation(err.Error()))
		return
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))

	var doc application.SnapshotDocument
	if appErr := middleware.BindAndValidate(c, &doc); appErr != nil {
		h.respondError(c, appErr)
		return
	}

	station, err := h.service.PushSnapshot(c.Request.Context(), doc.ToDomain())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, station)
}

// GetStation handles GET /api/v1/station
func (h *Handlers) GetStation(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Station())
}

// GetGrid handles GET /api/v1/station/grids/:gridId
func (h *Handlers) GetGrid(c *gin.Context) {
	grid, err := h.service.Grid(c.Param("gridId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, grid)
}

// ChangeContainerRequest replaces a provisional destination container
type ChangeContainerRequest struct {
	Container string `json:"container" binding:"required,container_code"`
}

// ChangeContainer handles PUT /api/v1/station/grids/:gridId/container
func (h *Handlers) ChangeContainer(c *gin.Context) {
	var req ChangeContainerRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		h.respondError(c, appErr)
		return
	}

	grid, err := h.service.ChangeContainer(c.Request.Context(), c.Param("gridId"), req.Container)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, grid)
}

// AutoFill handles POST /api/v1/station/containers/auto-fill
func (h *Handlers) AutoFill(c *gin.Context) {
	result, err := h.service.AutoFill(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListSourceContainers handles GET /api/v1/station/source-containers
func (h *Handlers) ListSourceContainers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sourceContainers": h.service.SourceContainers()})
}

// ActivateSourceContainerRequest makes a source container active
type ActivateSourceContainerRequest struct {
	Container string `json:"container" binding:"required,container_code"`
}

// ActivateSourceContainer handles POST /api/v1/station/source-container
func (h *Handlers) ActivateSourceContainer(c *gin.Context) {
	var req ActivateSourceContainerRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		h.respondError(c, appErr)
		return
	}

	station, err := h.service.ActivateSourceContainer(c.Request.Context(), req.Container)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, station)
}

// ClearSourceContainer handles DELETE /api/v1/station/source-container
func (h *Handlers) ClearSourceContainer(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.ClearSourceContainer(c.Request.Context()))
}

// ScanRequest is one SKU scan
type ScanRequest struct {
	Code string `json:"code" binding:"required,scan_code"`
}

// Scan handles POST /api/v1/station/scans
func (h *Handlers) Scan(c *gin.Context) {
	var req ScanRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		h.respondError(c, appErr)
		return
	}

	outcome, err := h.service.Scan(c.Request.Context(), req.Code)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// GetHistory handles GET /api/v1/station/history
func (h *Handlers) GetHistory(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.History())
}

// HistoryPrevious handles POST /api/v1/station/history/previous
func (h *Handlers) HistoryPrevious(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.HistoryPrevious())
}

// HistoryNext handles POST /api/v1/station/history/next
func (h *Handlers) HistoryNext(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.HistoryNext())
}

// GetAuditTrail handles GET /api/v1/station/audit
func (h *Handlers) GetAuditTrail(c *gin.Context) {
	limit := defaultAuditLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 500 {
			limit = l
		}
	}

	entries, err := h.service.AuditTrail(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
