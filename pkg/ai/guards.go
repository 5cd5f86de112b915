package ai

import (
	"regexp"
	"strings"
)

// Rule-based guards correcting common model misclassifications. The model
// tends to read "if selected for an interview" as an invite and polite
// rejections as confirmations; these phrase checks override it.

var rejectionRes = compileAll([]string{
	`unfortunately`,
	`regret\s+to\s+inform`,
	`not\s+moving\s+forward`,
	`will\s+not\s+be\s+moving\s+forward`,
	`not\s+selected`,
	`position\s+has\s+been\s+filled`,
	`decided\s+to\s+(?:move\s+forward\s+with|pursue)\s+other\s+candidates?`,
	`not\s+(?:quite\s+)?match(?:ing)?\s+(?:the\s+)?requirements?`,
	`we\s+will\s+not\s+proceed`,
	`do\s+not\s+align\s+with`,
	`after\s+careful\s+(?:review|consideration)`,
	`competitive\s+(?:applicant\s+)?pool`,
	`won(?:'|’)?t\s+be\s+(?:moving|proceeding)`,
	`not\s+(?:the\s+)?right\s+fit`,
	`unable\s+to\s+(?:move|proceed)\s+forward`,
})

var conditionalInterviewRes = compileAll([]string{
	`if\s+(?:you(?:'|’)?re|we(?:'|’)?re)\s+selected\s+for\s+an?\s+interview`,
	`if\s+selected\s+for\s+an?\s+interview`,
	`if\s+we\s+decide\s+to\s+move\s+forward`,
	`if\s+we\s+move\s+forward`,
	`should\s+you\s+advance`,
	`if\s+chosen\s+to\s+move\s+forward`,
	`if\s+there\s+(?:is|are)\s+(?:a\s+)?(?:potential\s+)?(?:fit|match)`,
	`we(?:'|’)?ll\s+(?:be\s+in\s+touch|reach\s+out|contact\s+you)\s+if`,
})

var interviewInvitationRes = compileAll([]string{
	`(?:we(?:'|’)?d\s+like\s+to|we\s+would\s+like\s+to)\s+(?:invite|schedule)`,
	`please\s+(?:schedule|book|complete)\s+(?:your|the|an?)\s+(?:interview|assessment)`,
	`(?:interview|assessment)\s+(?:is\s+)?scheduled\s+for`,
	`(?:coding|technical)\s+(?:challenge|assessment|test)`,
	`hackerrank|codesignal|codility|leetcode`,
	`take[-\s]?home\s+(?:assignment|project|test)`,
	`next\s+step(?:s)?\s+(?:is|are|in)\s+(?:your|the|our)`,
})

var screeningPhrases = []string{
	"phone screen",
	"screening call",
	"recruiter screen",
	"intro call",
	"introductory call",
	"15 min call",
	"30 min call",
	"schedule a call",
	"available for a call",
}

var offerPhrases = []string{
	"we're pleased to offer",
	"we are pleased to offer",
	"we'd like to offer",
	"we would like to offer",
	"extend an offer",
	"offer letter",
	"employment offer",
	"compensation package",
	"salary offer",
	"congratulations",
}

func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

func anyMatch(res []*regexp.Regexp, text string) bool {
	for _, re := range res {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func anyContains(phrases []string, text string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// HasRejectionLanguage reports rejection phrasing that should override a
// confirmation classification even when the email opens politely.
func HasRejectionLanguage(text string) bool {
	return anyMatch(rejectionRes, strings.ToLower(text))
}

// HasConditionalInterviewLanguage reports "if selected for an interview"
// style phrasing: a potential future interview, not an invitation.
func HasConditionalInterviewLanguage(text string) bool {
	return anyMatch(conditionalInterviewRes, strings.ToLower(text))
}

// HasInterviewInvitation reports a concrete interview or assessment next
// step.
func HasInterviewInvitation(text string) bool {
	return anyMatch(interviewInvitationRes, strings.ToLower(text))
}

// IsScreening reports phone-screen language, a lighter stage than a full
// interview loop.
func IsScreening(text string) bool {
	return anyContains(screeningPhrases, strings.ToLower(text))
}

// IsOffer reports offer language regardless of the assigned category.
func IsOffer(text string) bool {
	return anyContains(offerPhrases, strings.ToLower(text))
}

// ApplyGuards corrects a model-assigned category using the rule-based
// checks above. Returns the possibly overridden category and a note for the
// reasoning trail ("" when nothing changed).
func ApplyGuards(category, subject, body string) (string, string) {
	combined := subject + "\n" + body

	switch category {
	case "APPLICATION_RECEIVED", "RECRUITER_OUTREACH":
		if HasRejectionLanguage(combined) {
			return "REJECTION", "rejection language detected"
		}
	case "INTERVIEW_REQUEST", "ASSESSMENT":
		if HasConditionalInterviewLanguage(combined) && !HasInterviewInvitation(combined) {
			return "APPLICATION_RECEIVED", "conditional language, no concrete invite"
		}
	}
	return category, ""
}
