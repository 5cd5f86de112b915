package domain

import "time"

// Email classification categories. Every persisted Application carries exactly
// one of these; anything the model returns outside the set maps to CategoryOther.
const (
	CategoryRejection           = "REJECTION"
	CategoryInterviewRequest    = "INTERVIEW_REQUEST"
	CategoryAssessment          = "ASSESSMENT"
	CategoryRecruiterOutreach   = "RECRUITER_OUTREACH"
	CategoryApplicationReceived = "APPLICATION_RECEIVED"
	CategoryOffer               = "OFFER"
	CategoryOther               = "OTHER"
)

// Categories is the fixed set of allowed classification categories.
var Categories = map[string]bool{
	CategoryRejection:           true,
	CategoryInterviewRequest:    true,
	CategoryAssessment:          true,
	CategoryRecruiterOutreach:   true,
	CategoryApplicationReceived: true,
	CategoryOffer:               true,
	CategoryOther:               true,
}

// Application lifecycle stages.
const (
	StageApplied   = "Applied"
	StageScreening = "Screening"
	StageInterview = "Interview"
	StageOffer     = "Offer"
	StageRejected  = "Rejected"
	StageOther     = "Other"
)

// Application statuses (coarse pipeline state derived from stage).
const (
	StatusApplied      = "APPLIED"
	StatusRejected     = "REJECTED"
	StatusInterviewing = "INTERVIEWING"
	StatusOffer        = "OFFER"
)

// StatusFromStage maps an application stage to the coarse status.
func StatusFromStage(stage string) string {
	switch stage {
	case StageRejected:
		return StatusRejected
	case StageInterview, StageScreening:
		return StatusInterviewing
	case StageOffer:
		return StatusOffer
	default:
		return StatusApplied
	}
}

// StageFromCategory maps a classification category to the default stage.
// Screening/offer phrase detection in the classifier may refine it.
func StageFromCategory(category string) string {
	switch category {
	case CategoryRejection:
		return StageRejected
	case CategoryInterviewRequest, CategoryAssessment:
		return StageInterview
	case CategoryApplicationReceived:
		return StageApplied
	case CategoryOffer:
		return StageOffer
	default:
		return StageOther
	}
}

// Application is one classified job-related email per (user, gmail message id).
type Application struct {
	ID             string  `json:"id" gorm:"primaryKey"`
	UserID         string  `json:"user_id" gorm:"index;uniqueIndex:idx_app_user_gmail;not null"`
	GmailMessageID string  `json:"gmail_message_id" gorm:"uniqueIndex:idx_app_user_gmail;not null"`
	CompanyName    string  `json:"company_name" gorm:"index"`
	Position       string  `json:"position"`
	Status         string  `json:"status" gorm:"default:APPLIED"`
	Category       string  `json:"category" gorm:"index"`
	Subcategory    string  `json:"subcategory"`
	JobTitle       string  `json:"job_title" gorm:"index"`
	SalaryMin      *float64 `json:"salary_min"`
	SalaryMax      *float64 `json:"salary_max"`
	Location       string  `json:"location"`
	Confidence     *float64 `json:"confidence"`

	EmailSubject string     `json:"email_subject" gorm:"size:500"`
	EmailFrom    string     `json:"email_from" gorm:"size:255"`
	EmailBody    string     `json:"email_body" gorm:"type:text"`
	ReceivedDate *time.Time `json:"received_date" gorm:"index"`

	// Stage transition timestamps
	AppliedAt   *time.Time `json:"applied_at"`
	RejectedAt  *time.Time `json:"rejected_at"`
	InterviewAt *time.Time `json:"interview_at"`
	OfferAt     *time.Time `json:"offer_at"`

	ClassificationReasoning string `json:"classification_reasoning" gorm:"type:text"`
	PositionLevel           string `json:"position_level"`

	ApplicationStage string      `json:"application_stage" gorm:"default:Other"`
	RequiresAction   bool        `json:"requires_action"`
	ActionItems      StringSlice `json:"action_items" gorm:"type:jsonb"`

	ProcessingStatus string `json:"processing_status" gorm:"default:pending"`
	ProcessedBy      string `json:"processed_by"`
	NeedsReview      bool   `json:"needs_review"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Application) TableName() string {
	return "applications"
}

// TouchStageTimestamp stamps the lifecycle timestamp for the given stage
// if it has not been set yet.
func (a *Application) TouchStageTimestamp(stage string, at time.Time) {
	switch stage {
	case StageApplied:
		if a.AppliedAt == nil {
			a.AppliedAt = &at
		}
	case StageRejected:
		if a.RejectedAt == nil {
			a.RejectedAt = &at
		}
	case StageScreening, StageInterview:
		if a.InterviewAt == nil {
			a.InterviewAt = &at
		}
	case StageOffer:
		if a.OfferAt == nil {
			a.OfferAt = &at
		}
	}
}

// EmailLog is an append-only record of every processed message id, used for
// idempotency checks and debugging.
type EmailLog struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	UserID         string    `json:"user_id" gorm:"uniqueIndex:idx_log_user_gmail;not null"`
	GmailMessageID string    `json:"gmail_message_id" gorm:"uniqueIndex:idx_log_user_gmail;not null"`
	Classification string    `json:"classification"`
	Error          string    `json:"error" gorm:"type:text"`
	ProcessedAt    time.Time `json:"processed_at"`
}

func (EmailLog) TableName() string {
	return "email_logs"
}

// Company holds canonical company names and aliases used to normalize the
// noisy company strings extracted from emails.
type Company struct {
	ID            string      `json:"id" gorm:"primaryKey"`
	CanonicalName string      `json:"canonical_name" gorm:"uniqueIndex;not null"`
	Aliases       StringSlice `json:"aliases" gorm:"type:jsonb"`
	Industry      string      `json:"industry"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func (Company) TableName() string {
	return "companies"
}
