// Package jobtitle extracts job titles from application emails.
//
// The goal is recall: avoid missing titles while keeping them close to the
// email's own wording, with only obvious wrapper and noise text removed.
package jobtitle

import (
	"regexp"
	"sort"
	"strings"
)

// Candidate is one extracted title with its pattern score and source tag.
type Candidate struct {
	Value  string
	Score  int
	Source string
}

const maxBodyChars = 2500

var wsRe = regexp.MustCompile(`\s+`)

func collapseWS(s string) string {
	return wsRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

var (
	wrapperPrefixRe  = regexp.MustCompile(`(?i)^(?:the\s+)?(?:role|position|title|opening|opportunity)\s*[:\-–—]\s*`)
	jobTitlePrefixRe = regexp.MustCompile(`(?i)^job\s*title\s*[:\-–—]\s*`)
	roleSuffixRe     = regexp.MustCompile(`(?i)\s+(?:role|position)\s*$`)
	atCompanyRe      = regexp.MustCompile(`\s+(?:at|with)\s+[A-Z0-9][\w&.,'\- ]{1,80}\s*$`)
	reqBracketRe     = regexp.MustCompile(`(?i)\s*[\(\[\{]\s*(?:req(?:uisition)?|job|role)?\s*#?\s*[A-Z0-9][\w\-]*\s*[\)\]\}]\s*$`)
	reqDashRe        = regexp.MustCompile(`(?i)\s*-\s*(?:Req|Requisition)\s*#?\s*[A-Z0-9][\w\-]*\s*$`)
)

const quoteCutset = " \t\r\n\"'“”‘’` "

// Clean normalizes a raw extracted title while keeping it close to the
// email's wording. Returns "" when nothing usable remains.
func Clean(raw string) string {
	s := collapseWS(raw)
	if s == "" {
		return ""
	}

	s = strings.Trim(s, quoteCutset)
	s = wrapperPrefixRe.ReplaceAllString(s, "")
	s = jobTitlePrefixRe.ReplaceAllString(s, "")
	s = roleSuffixRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(atCompanyRe.ReplaceAllString(s, ""))
	// Quotes may have wrapped the title around a suffix that is now gone.
	s = strings.Trim(s, quoteCutset)
	s = strings.TrimSpace(reqBracketRe.ReplaceAllString(s, ""))
	s = strings.TrimSpace(reqDashRe.ReplaceAllString(s, ""))
	s = strings.TrimRight(s, " .,:;|/\\-–—")

	return collapseWS(s)
}

var (
	letterRe = regexp.MustCompile(`[A-Za-z]`)
	urlRe    = regexp.MustCompile(`(?i)https?://|www\.`)
	emailRe  = regexp.MustCompile(`\b[\w.\-]+@[\w.\-]+\.\w+\b`)
)

var bannedTitles = map[string]bool{
	"thank you for applying": true,
	"your application":       true,
	"next steps":             true,
	"application received":   true,
	"interview invitation":   true,
	"candidate":              true,
	"opportunity":            true,
	"position":               true,
	"role":                   true,
	"job":                    true,
}

// Plausible is a conservative junk filter: cut obvious non-titles while
// keeping recall high.
func Plausible(title string) bool {
	s := collapseWS(title)
	if len(s) < 3 || len(s) > 90 {
		return false
	}
	if !letterRe.MatchString(s) {
		return false
	}
	if urlRe.MatchString(s) || emailRe.MatchString(s) {
		return false
	}
	if len(strings.Fields(s)) > 10 {
		return false
	}
	return !bannedTitles[strings.ToLower(s)]
}

type pattern struct {
	re     *regexp.Regexp
	score  int
	source string
}

// Subject patterns score higher than body patterns because the subject is
// usually the cleanest source.
var subjectPatterns = []pattern{
	{regexp.MustCompile(`(?im)\b(?:interview|phone\s*screen|screening)\b.*?\bfor\b\s+(.+?)\s*$`), 120, "subject:interview_for"},
	{regexp.MustCompile(`(?im)\b(?:application|applied|thanks\s+for\s+applying|thank\s+you\s+for\s+applying)\b.*?(?:for|-\s*)\s+(.+?)\s*$`), 110, "subject:applied_for"},
	{regexp.MustCompile(`(?im)^\s*([A-Za-z][^|]{3,80}?)\s+[-–—]\s+(?:remote|hybrid|onsite)\b`), 105, "subject:title_dash_location"},
	{regexp.MustCompile(`(?im)\b(?:role|position|title|opening|opportunity)\s*[:\-–—]\s*(.+?)\s*$`), 100, "subject:role_label"},
	{regexp.MustCompile(`(?im)^\s*(.+?)\s+(?:at|with)\s+[A-Z0-9]`), 95, "subject:title_at_company"},
}

var bodyPatterns = []pattern{
	{regexp.MustCompile(`(?im)thank you for applying for (?:the )?(.+?)(?:\s+(?:role|position))?\s+(?:at|with)\b`), 90, "body:thanks_for_applying"},
	{regexp.MustCompile(`(?im)\byour application (?:was received|for)\s*(?:for\s+)?(.+?)\s*(?:\n|\.|,|$)`), 80, "body:your_application_for"},
	{regexp.MustCompile(`(?im)\binvit(?:e|ing)\s+you\b.*?\bfor\b\s+(.+?)\s*(?:\n|\.|,|$)`), 75, "body:invite_for"},
	{regexp.MustCompile(`(?im)\b(?:position|role|job title|title|hiring)\s*[:\-–—]\s*(.+?)\s*(?:\n|\.|,|$)`), 70, "body:label"},
}

func extractWithPatterns(text string, patterns []pattern) []Candidate {
	var out []Candidate
	for _, p := range patterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		raw := m[0]
		if len(m) > 1 {
			raw = m[1]
		}
		cleaned := Clean(raw)
		if Plausible(cleaned) {
			out = append(out, Candidate{Value: cleaned, Score: p.score, Source: p.source})
		}
	}
	return out
}

// Candidates extracts ranked job title candidates from subject and body,
// deduplicated case-insensitively keeping the best score.
func Candidates(subject, body string) []Candidate {
	if len(body) > maxBodyChars {
		body = body[:maxBodyChars]
	}

	cands := extractWithPatterns(subject, subjectPatterns)
	cands = append(cands, extractWithPatterns(body, bodyPatterns)...)

	best := make(map[string]Candidate)
	for _, c := range cands {
		key := strings.ToLower(collapseWS(c.Value))
		if existing, ok := best[key]; !ok || c.Score > existing.Score {
			best[key] = c
		}
	}

	out := make([]Candidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// PickBest prefers the model-suggested title when it survives cleaning and
// the plausibility filter, otherwise falls back to the top extracted
// candidate. Returns "" when no usable title exists.
func PickBest(subject, body, suggested string) string {
	cleaned := Clean(suggested)
	if Plausible(cleaned) {
		return cleaned
	}
	if cands := Candidates(subject, body); len(cands) > 0 {
		return cands[0].Value
	}
	return ""
}
