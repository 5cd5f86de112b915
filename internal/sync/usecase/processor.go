package usecase

import (
	"time"

	appdomain "jobtrack-backend/internal/application/domain"
	emaildomain "jobtrack-backend/internal/email/domain"
	"jobtrack-backend/pkg/ai"
)

const (
	maxSubjectLen = 500
	maxFromLen    = 255
	maxBodyLen    = 10000
)

// defaultActionItems are attached when the model returned none.
var defaultActionItems = map[string][]string{
	appdomain.CategoryInterviewRequest:  {"Complete assessment or schedule interview"},
	appdomain.CategoryAssessment:        {"Complete assessment or schedule interview"},
	appdomain.CategoryRecruiterOutreach: {"Respond to recruiter"},
}

// assignStage maps the category to an application stage, refined by phrase
// detection: phone-screen language downgrades an interview to Screening, and
// offer language forces Offer regardless of category.
func assignStage(category, subject, body string) string {
	stage := appdomain.StageFromCategory(category)

	combined := subject + "\n" + body
	if (category == appdomain.CategoryInterviewRequest || category == appdomain.CategoryAssessment) && ai.IsScreening(combined) {
		stage = appdomain.StageScreening
	}
	if ai.IsOffer(combined) {
		stage = appdomain.StageOffer
	}
	return stage
}

// buildApplication turns a fetched email plus its classification into the
// row persisted by the sync pipeline.
func buildApplication(userID string, email *emaildomain.Email, cls *ai.Classification) *appdomain.Application {
	stage := assignStage(cls.Category, email.Subject, email.Body)
	status := appdomain.StatusFromStage(stage)

	actionItems := cls.ActionItems
	if len(actionItems) == 0 {
		actionItems = defaultActionItems[cls.Category]
	}
	requiresAction := len(actionItems) > 0
	if stage == appdomain.StageOffer {
		requiresAction = true
		actionItems = append(append([]string{}, actionItems...), "Review offer details and respond")
	}

	company := cls.CompanyName
	if company == "" {
		company = "Unknown"
	}
	if len(company) > maxFromLen {
		company = company[:maxFromLen]
	}

	confidence := cls.Confidence
	received := email.ReceivedAt
	app := &appdomain.Application{
		UserID:         userID,
		GmailMessageID: email.ID,
		CompanyName:    company,
		Position:       cls.JobTitle,
		Status:         status,
		Category:       cls.Category,
		Subcategory:    cls.Subcategory,
		JobTitle:       cls.JobTitle,
		SalaryMin:      floatPtr(cls.SalaryMin),
		SalaryMax:      floatPtr(cls.SalaryMax),
		Location:       cls.Location,
		Confidence:     &confidence,

		EmailSubject: truncate(email.Subject, maxSubjectLen),
		EmailFrom:    truncate(email.From, maxFromLen),
		EmailBody:    truncate(email.Body, maxBodyLen),
		ReceivedDate: &received,

		ClassificationReasoning: cls.Reasoning,
		PositionLevel:           cls.PositionLevel,

		ApplicationStage: stage,
		RequiresAction:   requiresAction,
		ActionItems:      actionItems,

		ProcessingStatus: "completed",
		ProcessedBy:      cls.ClassifiedBy,
		NeedsReview:      cls.NeedsReview(),
	}

	at := received
	if at.IsZero() {
		at = time.Now()
	}
	app.TouchStageTimestamp(appdomain.StageApplied, at)
	app.TouchStageTimestamp(stage, at)
	return app
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

func floatPtr(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}
