package ai

import (
	"context"
	"regexp"
	"strings"

	"jobtrack-backend/pkg/jobtitle"
)

// HeuristicClassifier is the regex-based degradation path. It runs when the
// model provider is unavailable or keeps returning garbage, producing a
// low-confidence result instead of failing the message.
type HeuristicClassifier struct{}

func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{}
}

var (
	assessmentRe = regexp.MustCompile(`(?i)coding\s+(?:challenge|assessment|test)|technical\s+(?:assessment|test)|take[-\s]?home|hackerrank|codesignal|codility|online\s+assessment`)
	receivedRe   = regexp.MustCompile(`(?i)thank\s+you\s+for\s+applying|thanks\s+for\s+applying|application\s+(?:was\s+)?received|received\s+your\s+application|successfully\s+submitted`)
	outreachRe   = regexp.MustCompile(`(?i)came\s+across\s+your\s+profile|your\s+background|exciting\s+opportunity|i(?:'|’)?m\s+a\s+recruiter|sourcing|reaching\s+out\s+(?:to|about)`)
)

func (h *HeuristicClassifier) Classify(_ context.Context, subject, sender, body string) (*Classification, error) {
	combined := subject + "\n" + body

	category := "OTHER"
	confidence := 0.3
	switch {
	case HasRejectionLanguage(combined):
		category = "REJECTION"
		confidence = 0.5
	case IsOffer(combined):
		category = "OFFER"
		confidence = 0.4
	case assessmentRe.MatchString(combined):
		category = "ASSESSMENT"
		confidence = 0.45
	case HasInterviewInvitation(combined) && !HasConditionalInterviewLanguage(combined):
		category = "INTERVIEW_REQUEST"
		confidence = 0.45
	case receivedRe.MatchString(combined):
		category = "APPLICATION_RECEIVED"
		confidence = 0.5
	case outreachRe.MatchString(combined):
		category = "RECRUITER_OUTREACH"
		confidence = 0.35
	}

	return &Classification{
		Category:     category,
		CompanyName:  CompanyFromSender(sender),
		JobTitle:     jobtitle.PickBest(subject, body, ""),
		Confidence:   confidence,
		Reasoning:    "heuristic classification (model unavailable)",
		ClassifiedBy: "heuristic",
	}, nil
}

var senderDomainRe = regexp.MustCompile(`@([\w.-]+)`)

var genericDomains = map[string]bool{
	"gmail.com":      true,
	"yahoo.com":      true,
	"hotmail.com":    true,
	"outlook.com":    true,
	"icloud.com":     true,
	"mail.com":       true,
	"protonmail.com": true,
	"aol.com":        true,
}

// ATS providers send on behalf of the hiring company, so the domain is
// meaningless for company extraction.
var atsDomains = []string{"greenhouse.io", "lever.co", "myworkdayjobs.com"}

// CompanyFromSender extracts a company name from the sender's email domain.
// Returns "Unknown" for personal mail providers and ATS domains.
func CompanyFromSender(sender string) string {
	m := senderDomainRe.FindStringSubmatch(sender)
	if m == nil {
		return "Unknown"
	}
	domain := strings.ToLower(m[1])

	if genericDomains[domain] {
		return "Unknown"
	}
	for _, ats := range atsDomains {
		if strings.Contains(domain, ats) {
			return "Unknown"
		}
	}

	parts := strings.Split(domain, ".")
	if len(parts) < 2 {
		return "Unknown"
	}
	company := parts[len(parts)-2]
	if company == "" {
		return "Unknown"
	}
	return strings.ToUpper(company[:1]) + company[1:]
}

var companySuffixRe = regexp.MustCompile(`(?i),?\s*(?:Inc|LLC|L\.L\.C|Corp|Corporation|Ltd|Limited|Co|Company|PLC|GmbH)\.?\s*$`)

// NormalizeCompany strips legal suffixes like "Inc" and "GmbH" so the same
// employer dedupes to one name.
func NormalizeCompany(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == "Unknown" {
		return "Unknown"
	}
	for {
		stripped := strings.TrimSpace(companySuffixRe.ReplaceAllString(name, ""))
		if stripped == name {
			break
		}
		name = stripped
	}
	if name == "" {
		return "Unknown"
	}
	return name
}
