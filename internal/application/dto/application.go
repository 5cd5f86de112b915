package dto

import appdomain "jobtrack-backend/internal/application/domain"

type ListQuery struct {
	Status string `form:"status"`
	Offset int    `form:"offset,default=0" binding:"gte=0"`
	Limit  int    `form:"limit,default=50" binding:"gte=1,lte=100"`
}

type PaginatedApplications struct {
	Items  []appdomain.Application `json:"items"`
	Total  int64                   `json:"total"`
	Offset int                     `json:"offset"`
	Limit  int                     `json:"limit"`
}

type Stats struct {
	TotalApplications int64 `json:"total_applications"`
	Rejections        int64 `json:"rejections"`
	Interviews        int64 `json:"interviews"`
	Assessments       int64 `json:"assessments"`
	Pending           int64 `json:"pending"`
	Offers            int64 `json:"offers"`
}

type UpdateRequest struct {
	Status           *string `json:"status"`
	ApplicationStage *string `json:"application_stage"`
	CompanyName      *string `json:"company_name"`
	JobTitle         *string `json:"job_title"`
	NeedsReview      *bool   `json:"needs_review"`
}

type ScheduleRequest struct {
	CalendarEventAt string `json:"calendar_event_at" binding:"required"`
	Title           string `json:"title"`
}

type RespondRequest struct {
	Template string `json:"template" binding:"required"`
}

type FunnelStage struct {
	Stage string  `json:"stage"`
	Count int64   `json:"count"`
	Pct   float64 `json:"pct"`
}

type FunnelResponse struct {
	Funnel []FunnelStage `json:"funnel"`
	Total  int64         `json:"total"`
}

type ResponseRateItem struct {
	Name      string  `json:"name"`
	Applied   int64   `json:"applied"`
	Responded int64   `json:"responded"`
	Rate      float64 `json:"rate"`
}

type ResponseRateResponse struct {
	GroupBy string             `json:"group_by"`
	Items   []ResponseRateItem `json:"items"`
}

type TimeToEventResponse struct {
	Event      string   `json:"event"`
	MedianDays *float64 `json:"median_days"`
	AvgDays    *float64 `json:"avg_days"`
	SampleSize int      `json:"sample_size"`
}

type PredictionItem struct {
	ApplicationID string             `json:"application_id"`
	CompanyName   string             `json:"company_name"`
	Probability   float64            `json:"probability"`
	Features      map[string]float64 `json:"features"`
}

type PredictionResponse struct {
	Items []PredictionItem `json:"items"`
	Limit int              `json:"limit"`
}
