package ai

import (
	"regexp"
	"strings"
)

// Relevance is the outcome of the rule-based job-email pre-filter.
type Relevance int

const (
	// RelevanceUnknown means the rules could not decide; the email goes on
	// to full classification.
	RelevanceUnknown Relevance = iota
	RelevanceJob
	RelevanceNotJob
)

// Sender domains that are effectively never about a job application.
var nonJobSenderDomains = []string{
	"billing", "payments", "invoice", "receipt",
	"newsletter", "marketing", "promo", "campaigns", "news",
	"facebookmail.com", "twitter.com", "linkedin.com", "instagram.com",
	"amazon.com", "ebay.com", "shopify.com",
	"openai.com", "chatgpt.com", "notion.so", "slack.com", "zoom.us",
	"spotify.com", "netflix.com", "apple.com", "google.com",
	"dropbox.com", "adobe.com", "microsoft.com",
	"chase.com", "bankofamerica.com", "wellsfargo.com", "paypal.com",
	"venmo.com", "capitalone.com",
}

const atsException = `(?!.*(?:greenhouse|lever|workday|icims|taleo|jobvite))`

var nonJobSenderRes = compileRelevanceRes([]string{
	`no[-_]?reply@`,
	`do[-_]?not[-_]?reply@`,
	`billing@`,
	`payments?@`,
	`support@` + atsException,
	`newsletter@`,
	`notifications?@` + atsException,
	`marketing@`,
	`promo(?:tions?)?@`,
	`info@` + atsException,
	`receipt@`,
	`invoice@`,
	`order@`,
	`shipping@`,
	`delivery@`,
})

var nonJobSubjectRes = compileRelevanceRes([]string{
	`(?:update|confirm).*(?:payment|billing|subscription)`,
	`(?:payment|subscription|billing)\s+(?:failed|declined|updated|confirmed)`,
	`your\s+(?:receipt|invoice|order|purchase)`,
	`renew(?:al)?\s+(?:reminder|notice)`,
	`(?:credit\s+card|payment\s+method)\s+(?:expir|update|declined)`,
	`password\s+(?:reset|changed|updated)`,
	`(?:verify|confirm)\s+your\s+(?:email|account)`,
	`(?:security|login)\s+(?:alert|notification)`,
	`two[-\s]?factor\s+authentication`,
	`sign[-\s]?in\s+(?:alert|attempt|notification)`,
	`(?:order|shipment|package)\s+(?:shipped|delivered|confirmed|tracking)`,
	`delivery\s+(?:update|confirmation|notification)`,
	`(?:exclusive|special|limited\s+time)\s+offer`,
	`(?:black\s+friday|cyber\s+monday|holiday\s+sale)`,
	`(?:new\s+)?(?:follower|like|comment|mention)\s+(?:on|from)`,
	`someone\s+(?:liked|commented|mentioned|followed)`,
	`(?:weekly|daily|monthly)\s+(?:digest|newsletter|roundup)`,
	`top\s+(?:stories|news|articles)`,
})

var jobRelatedRes = compileRelevanceRes([]string{
	`application\s+(?:received|status|update)`,
	`thank\s+you\s+for\s+applying`,
	`interview\s+(?:invitation|request|schedule)`,
	`(?:phone|video|onsite|technical)\s+(?:screen|interview)`,
	`recruiter`,
	`hiring\s+(?:manager|team)`,
	`job\s+(?:offer|opportunity|opening|posting)`,
	`position\s+(?:at|with|for)`,
	`(?:coding|technical|assessment)\s+(?:challenge|test)`,
	`(?:hackerrank|codesignal|codility|leetcode)`,
	`(?:offer|compensation)\s+(?:letter|package|details)`,
	`background\s+check`,
	`start\s+date`,
	`onboarding`,
})

// Applicant tracking systems: mail from these is always job-related. Wider
// than the atsDomains list in heuristic.go, which only names the providers
// whose domain must not be read as a company name.
var atsSenderDomains = []string{
	"greenhouse.io", "lever.co", "workday.com", "icims.com",
	"taleo.net", "jobvite.com", "smartrecruiters.com", "breezy.hr",
	"ashbyhq.com", "bamboohr.com", "successfactors.com", "myworkday.com",
	"myworkdayjobs.com", "ultipro.com", "adp.com", "ceridian.com",
}

func compileRelevanceRes(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		// RE2 has no lookahead; the ATS exceptions are covered by check
		// ordering in CheckRelevance instead.
		p = strings.ReplaceAll(p, atsException, "")
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}
	return out
}

func senderDomain(sender string) string {
	m := senderDomainRe.FindStringSubmatch(sender)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

func isATSSender(sender string) bool {
	domain := senderDomain(sender)
	if domain == "" {
		return false
	}
	for _, ats := range atsSenderDomains {
		if strings.Contains(domain, ats) {
			return true
		}
	}
	return false
}

// CheckRelevance is a fast rule-based pre-filter deciding whether an email
// is about a job application at all. Billing, marketing, social and account
// noise is rejected before it costs a model call; ATS senders and strong
// job phrases are accepted outright; everything else is left to the
// classifier.
func CheckRelevance(subject, body, sender string) Relevance {
	if len(body) > 2000 {
		body = body[:2000]
	}
	subjectNorm := normalizeForHash(subject)
	senderNorm := normalizeForHash(sender)
	combined := subjectNorm + " " + normalizeForHash(body)

	if isATSSender(sender) {
		return RelevanceJob
	}
	if anyMatch(jobRelatedRes, combined) {
		return RelevanceJob
	}

	if domain := senderDomain(sender); domain != "" {
		for _, nonJob := range nonJobSenderDomains {
			if strings.Contains(domain, nonJob) {
				return RelevanceNotJob
			}
		}
	}
	if anyMatch(nonJobSenderRes, senderNorm) {
		return RelevanceNotJob
	}
	if anyMatch(nonJobSubjectRes, subjectNorm) {
		return RelevanceNotJob
	}

	return RelevanceUnknown
}
