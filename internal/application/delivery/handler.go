package delivery

import (
	"errors"
	"net/http"
	"strconv"

	appdomain "jobtrack-backend/internal/application/domain"
	appdto "jobtrack-backend/internal/application/dto"
	"jobtrack-backend/internal/application/usecase"

	"github.com/gin-gonic/gin"
)

type ApplicationHandler struct {
	appUsecase       usecase.ApplicationUsecase
	analyticsUsecase usecase.AnalyticsUsecase
}

func NewApplicationHandler(appUsecase usecase.ApplicationUsecase, analyticsUsecase usecase.AnalyticsUsecase) *ApplicationHandler {
	return &ApplicationHandler{
		appUsecase:       appUsecase,
		analyticsUsecase: analyticsUsecase,
	}
}

func (h *ApplicationHandler) GetStats(c *gin.Context) {
	stats, err := h.appUsecase.Stats(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *ApplicationHandler) ListApplications(c *gin.Context) {
	var q appdto.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.appUsecase.List(c.GetString("userID"), &q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ApplicationHandler) GetApplication(c *gin.Context) {
	app, err := h.appUsecase.Get(c.GetString("userID"), c.Param("id"))
	if err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "application not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *ApplicationHandler) UpdateApplication(c *gin.Context) {
	var req appdto.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	app, err := h.appUsecase.Update(c.GetString("userID"), c.Param("id"), &req)
	if err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "application not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *ApplicationHandler) DeleteApplication(c *gin.Context) {
	err := h.appUsecase.Delete(c.GetString("userID"), c.Param("id"))
	if err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "application not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "application deleted"})
}

// ScheduleApplication acknowledges a schedule request. Calendar integration
// is not wired up yet; the response echoes what would be scheduled.
func (h *ApplicationHandler) ScheduleApplication(c *gin.Context) {
	var req appdto.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	app, err := h.appUsecase.Get(c.GetString("userID"), c.Param("id"))
	if err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "application not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	title := req.Title
	if title == "" {
		title = "Interview - " + app.CompanyName
	}
	c.JSON(http.StatusOK, gin.H{
		"message":           "Schedule requested.",
		"application_id":    app.ID,
		"calendar_event_at": req.CalendarEventAt,
		"title":             title,
	})
}

// RespondApplication acknowledges an auto-response request. Sending replies
// through Gmail is not wired up yet.
func (h *ApplicationHandler) RespondApplication(c *gin.Context) {
	var req appdto.RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	app, err := h.appUsecase.Get(c.GetString("userID"), c.Param("id"))
	if err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "application not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Respond requested.",
		"application_id": app.ID,
		"template":       req.Template,
	})
}

func (h *ApplicationHandler) ListCompanies(c *gin.Context) {
	companies, err := h.appUsecase.Companies()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": companies})
}

func (h *ApplicationHandler) SaveCompany(c *gin.Context) {
	var company appdomain.Company
	if err := c.ShouldBindJSON(&company); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if company.CanonicalName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "canonical_name is required"})
		return
	}

	if err := h.appUsecase.SaveCompany(&company); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, company)
}

func (h *ApplicationHandler) GetFunnel(c *gin.Context) {
	resp, err := h.analyticsUsecase.Funnel(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ApplicationHandler) GetResponseRate(c *gin.Context) {
	resp, err := h.analyticsUsecase.ResponseRate(c.GetString("userID"), c.DefaultQuery("group_by", "company"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ApplicationHandler) GetTimeToEvent(c *gin.Context) {
	resp, err := h.analyticsUsecase.TimeToEvent(c.GetString("userID"), c.DefaultQuery("event", "rejection"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ApplicationHandler) GetPrediction(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	resp, err := h.analyticsUsecase.Prediction(c.GetString("userID"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}
