package delivery

import (
	"errors"
	"net/http"
	"time"

	appusecase "jobtrack-backend/internal/application/usecase"
	syncdomain "jobtrack-backend/internal/sync/domain"
	"jobtrack-backend/internal/sync/usecase"
	"jobtrack-backend/pkg/sse"

	"github.com/gin-gonic/gin"
)

type SyncHandler struct {
	syncUsecase      usecase.SyncUsecase
	reprocessUsecase usecase.ReprocessUsecase
	classification   *usecase.ClassificationService
	sseManager       *sse.Manager
}

func NewSyncHandler(
	syncUsecase usecase.SyncUsecase,
	reprocessUsecase usecase.ReprocessUsecase,
	classification *usecase.ClassificationService,
	sseManager *sse.Manager,
) *SyncHandler {
	return &SyncHandler{
		syncUsecase:      syncUsecase,
		reprocessUsecase: reprocessUsecase,
		classification:   classification,
		sseManager:       sseManager,
	}
}

type syncRequest struct {
	Mode      string `json:"mode"`
	AfterDate string `json:"after_date"`
}

// StartSync kicks off a background sync. Mode comes from the body or the
// ?mode= query, defaulting to auto; an optional after_date (YYYY-MM-DD)
// bounds a full sync.
func (h *SyncHandler) StartSync(c *gin.Context) {
	var req syncRequest
	if c.Request.ContentLength > 0 {
		_ = c.ShouldBindJSON(&req)
	}
	mode := req.Mode
	if mode == "" {
		mode = c.DefaultQuery("mode", syncdomain.ModeAuto)
	}
	switch mode {
	case syncdomain.ModeAuto, syncdomain.ModeFull, syncdomain.ModeIncremental:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be auto, full or incremental"})
		return
	}

	var after time.Time
	if raw := req.AfterDate; raw != "" {
		parsed, err := parseAfterDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "after_date must be YYYY-MM-DD"})
			return
		}
		after = parsed
	}

	err := h.syncUsecase.StartSync(c.GetString("userID"), mode, after)
	switch {
	case errors.Is(err, syncdomain.ErrSyncInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "sync already in progress"})
	case errors.Is(err, syncdomain.ErrAuthRequired):
		c.JSON(http.StatusForbidden, gin.H{"error": "Gmail account not connected"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusAccepted, gin.H{"status": "started", "mode": mode})
	}
}

// parseAfterDate accepts the two date spellings the Gmail query syntax
// understands.
func parseAfterDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse("2006/01/02", raw)
}

func (h *SyncHandler) SyncStatus(c *gin.Context) {
	progress, err := h.syncUsecase.Status(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, progress)
}

// SyncStream subscribes the client to live sync and reprocess events. The
// current sync snapshot is replayed first, and the stream ends once a sync
// event reports a finished run.
func (h *SyncHandler) SyncStream(c *gin.Context) {
	userID := c.GetString("userID")

	var snapshot *sse.Event
	if progress, err := h.syncUsecase.Status(userID); err == nil {
		snapshot = &sse.Event{Type: "sync_progress", Payload: progress}
	}

	h.sseManager.Stream(c, userID, snapshot, func(ev sse.Event) bool {
		progress, ok := ev.Payload.(*syncdomain.Progress)
		return ok && progress.Terminal()
	})
}

func (h *SyncHandler) StartReprocess(c *gin.Context) {
	// An empty body means default options.
	var opts syncdomain.ReprocessOptions
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&opts); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	err := h.reprocessUsecase.Start(c.GetString("userID"), opts)
	switch {
	case errors.Is(err, syncdomain.ErrSyncInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "reprocess already in progress"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusAccepted, gin.H{"status": "started", "dry_run": opts.DryRun})
	}
}

// ReprocessOne re-classifies a single application synchronously and returns
// the updated record.
func (h *SyncHandler) ReprocessOne(c *gin.Context) {
	app, err := h.reprocessUsecase.ReprocessOne(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	switch {
	case errors.Is(err, appusecase.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "application not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"application": app})
	}
}

func (h *SyncHandler) ReprocessStatus(c *gin.Context) {
	state, err := h.reprocessUsecase.Status(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *SyncHandler) ResetCache(c *gin.Context) {
	deleted, err := h.classification.ResetCache(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *SyncHandler) CacheStats(c *gin.Context) {
	stats, err := h.classification.CacheStats(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *SyncHandler) RegisterWatch(c *gin.Context) {
	expiry, err := h.syncUsecase.RegisterWatch(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		if errors.Is(err, syncdomain.ErrAuthRequired) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Gmail account not connected"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"expiration": expiry})
}
