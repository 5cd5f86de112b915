package ai

import "context"

// Classification is the structured result of classifying one job email.
type Classification struct {
	Category      string   `json:"category"`
	Subcategory   string   `json:"subcategory,omitempty"`
	CompanyName   string   `json:"company_name"`
	JobTitle      string   `json:"job_title,omitempty"`
	PositionLevel string   `json:"position_level,omitempty"`
	Location      string   `json:"location,omitempty"`
	SalaryMin     *int     `json:"salary_min,omitempty"`
	SalaryMax     *int     `json:"salary_max,omitempty"`
	Confidence    float64  `json:"confidence"`
	Reasoning     string   `json:"reasoning,omitempty"`
	ActionItems   []string `json:"action_items,omitempty"`

	// ClassifiedBy records which backend produced the result (model name or
	// "heuristic").
	ClassifiedBy string `json:"classified_by,omitempty"`
}

// NeedsReview flags low-confidence results for manual inspection.
func (c *Classification) NeedsReview() bool {
	return c.Confidence < 0.65
}

// Classifier turns a raw email into a Classification.
// Implement this interface to add new model providers (OpenAI, Ollama, etc.)
type Classifier interface {
	Classify(ctx context.Context, subject, sender, body string) (*Classification, error)
}

// Categories is the fixed classification enumeration. Anything a model
// returns outside this set is normalized to OTHER.
var Categories = map[string]bool{
	"REJECTION":            true,
	"INTERVIEW_REQUEST":    true,
	"ASSESSMENT":           true,
	"RECRUITER_OUTREACH":   true,
	"APPLICATION_RECEIVED": true,
	"OFFER":                true,
	"OTHER":                true,
}
