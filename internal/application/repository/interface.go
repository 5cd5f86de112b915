package repository

import (
	"time"

	appdomain "jobtrack-backend/internal/application/domain"
)

// ListFilter narrows an application listing.
type ListFilter struct {
	Category string
	Offset   int
	Limit    int
}

// NameCount is one group-by row for analytics queries.
type NameCount struct {
	Name  string
	Count int64
}

// EventPair is a (received, event) timestamp pair for time-to-event
// analytics.
type EventPair struct {
	Received *time.Time
	Event    *time.Time
}

// ReprocessFilter selects stored applications for re-classification.
type ReprocessFilter struct {
	OnlyNeedsReview bool
	ConfidenceBelow *float64
	Limit           int
}

// ApplicationRepository persists classified applications, one row per
// (user, gmail message id).
type ApplicationRepository interface {
	// Upsert inserts the application or, when the (user, message id) row
	// already exists, leaves it untouched. Returns whether a row was created.
	Upsert(app *appdomain.Application) (bool, error)
	Save(app *appdomain.Application) error
	FindByID(userID, id string) (*appdomain.Application, error)
	List(userID string, f ListFilter) ([]appdomain.Application, int64, error)
	ListRecent(userID string, limit int) ([]appdomain.Application, error)
	ListForReprocess(userID string, f ReprocessFilter) ([]appdomain.Application, error)
	Delete(userID, id string) error

	Count(userID string) (int64, error)
	CountByCategory(userID string) (map[string]int64, error)
	CountByStages(userID string, stages []string) (int64, error)
	GroupCount(userID, groupBy string, stages []string) ([]NameCount, error)
	EventPairs(userID, event string) ([]EventPair, error)
}

// EmailLogRepository is the idempotency ledger of processed message ids.
type EmailLogRepository interface {
	Exists(userID, gmailMessageID string) (bool, error)
	Create(entry *appdomain.EmailLog) error
}

// CompanyRepository canonicalizes extracted company names.
type CompanyRepository interface {
	Canonicalize(name string) (string, error)
	List() ([]appdomain.Company, error)
	Save(company *appdomain.Company) error
}
