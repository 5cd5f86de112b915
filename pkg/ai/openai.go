package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"jobtrack-backend/pkg/jobtitle"
)

const (
	maxClassifyRetries = 3
	classifyBodySample = 1500
)

// OpenAIClassifier classifies job emails with an OpenAI chat model, forcing
// JSON output and validating the result against the category enumeration.
type OpenAIClassifier struct {
	client *openai.Client
	model  string
}

func NewOpenAIClassifier(apiKey, model string) *OpenAIClassifier {
	return &OpenAIClassifier{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

const classifyPromptTemplate = `You are a classification system for job search emails.

Classify this email into EXACTLY ONE category:
- REJECTION: Email rejecting the application
- INTERVIEW_REQUEST: Requesting to schedule an interview
- ASSESSMENT: Technical assessment/coding challenge invitation
- RECRUITER_OUTREACH: Direct recruiter reaching out about an opportunity
- APPLICATION_RECEIVED: Confirmation that the application was received
- OFFER: Job offer or offer-related
- OTHER: Doesn't fit above categories

CRITICAL DISAMBIGUATION RULES:
1. CONDITIONAL LANGUAGE = APPLICATION_RECEIVED (not an interview)
   - "if selected for an interview", "if we decide to move forward", "we'll be in touch if there's a fit"
2. REJECTION LANGUAGE = REJECTION (even with polite phrases)
   - "unfortunately", "not moving forward", "position has been filled", "decided to pursue other candidates"
3. ACTUAL INTERVIEW = INTERVIEW_REQUEST or ASSESSMENT
   - Must have a CONCRETE next step, not a conditional possibility

EMAIL:
Subject: %s
From: %s
Body: %s

Possible job title candidates (auto-extracted; prefer one of these when it matches):
%s

Return ONLY valid JSON (no markdown):
{
  "category": "<category from list above>",
  "subcategory": "<finer label like phone_screen, talent_community, job_alert, or null>",
  "company_name": "<hiring company, not job boards or ATS providers, or null>",
  "job_title": "<exact title mentioned, without 'role'/'position'/'at Company', or null>",
  "position_level": "<Junior|Mid|Senior|Staff|Principal|Lead|Manager or null>",
  "location": "<location or null>",
  "salary_min": <number or null>,
  "salary_max": <number or null>,
  "confidence": <0.0-1.0>,
  "reasoning": "<brief 1-sentence explanation>",
  "action_items": ["<short action item>", ...]
}`

type classifyResponse struct {
	Category      string   `json:"category"`
	Subcategory   *string  `json:"subcategory"`
	CompanyName   *string  `json:"company_name"`
	JobTitle      *string  `json:"job_title"`
	PositionLevel *string  `json:"position_level"`
	Location      *string  `json:"location"`
	SalaryMin     *int     `json:"salary_min"`
	SalaryMax     *int     `json:"salary_max"`
	Confidence    *float64 `json:"confidence"`
	Reasoning     string   `json:"reasoning"`
	ActionItems   []string `json:"action_items"`
}

func (o *OpenAIClassifier) Classify(ctx context.Context, subject, sender, body string) (*Classification, error) {
	bodySample := body
	if len(bodySample) > classifyBodySample {
		bodySample = bodySample[:classifyBodySample]
	}

	candidates := jobtitle.Candidates(subject, bodySample)
	var candidateLines []string
	for i, c := range candidates {
		if i >= 6 {
			break
		}
		candidateLines = append(candidateLines, "- "+c.Value)
	}
	candidateText := "- (none found)"
	if len(candidateLines) > 0 {
		candidateText = strings.Join(candidateLines, "\n")
	}

	prompt := fmt.Sprintf(classifyPromptTemplate, subject, sender, bodySample, candidateText)

	var lastErr error
	for attempt := 1; attempt <= maxClassifyRetries; attempt++ {
		result, err := o.callOnce(ctx, prompt, subject, sender, body)
		if err == nil {
			return result, nil
		}
		lastErr = err
		log.Printf("[AI] Classification attempt %d/%d failed: %v", attempt, maxClassifyRetries, err)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	return nil, fmt.Errorf("classification failed after %d attempts: %w", maxClassifyRetries, lastErr)
}

func (o *OpenAIClassifier) callOnce(ctx context.Context, prompt, subject, sender, body string) (*Classification, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.1,
		MaxTokens:   400,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty completion response")
	}

	var parsed classifyResponse
	text := cleanJSONResponse(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("malformed model response: %w", err)
	}

	category := NormalizeCategory(parsed.Category)
	reasoning := parsed.Reasoning
	if overridden, note := ApplyGuards(category, subject, body); overridden != category {
		category = overridden
		reasoning = "[Override: " + note + "] " + reasoning
	}

	confidence := 0.5
	if parsed.Confidence != nil {
		confidence = ClampConfidence(*parsed.Confidence)
	}

	result := &Classification{
		Category:     category,
		Confidence:   confidence,
		Reasoning:    reasoning,
		ActionItems:  parsed.ActionItems,
		ClassifiedBy: o.model,
	}
	if parsed.Subcategory != nil {
		result.Subcategory = *parsed.Subcategory
	}
	if parsed.PositionLevel != nil {
		result.PositionLevel = *parsed.PositionLevel
	}
	if parsed.Location != nil {
		result.Location = *parsed.Location
	}
	result.SalaryMin = parsed.SalaryMin
	result.SalaryMax = parsed.SalaryMax

	company := "Unknown"
	if parsed.CompanyName != nil {
		company = NormalizeCompany(*parsed.CompanyName)
	}
	if company == "Unknown" {
		company = CompanyFromSender(sender)
	}
	result.CompanyName = company

	suggested := ""
	if parsed.JobTitle != nil {
		suggested = *parsed.JobTitle
	}
	result.JobTitle = jobtitle.PickBest(subject, body, suggested)

	return result, nil
}

var (
	codeFenceRe   = regexp.MustCompile("```(?:json)?\\s*")
	jsonObjectRe  = regexp.MustCompile(`\{[\s\S]*\}`)
	categorySepRe = regexp.MustCompile(`[\s\-]+`)
)

// cleanJSONResponse strips markdown fences and extracts the JSON object from
// a model reply that ignored the no-markdown instruction.
func cleanJSONResponse(text string) string {
	text = strings.TrimSpace(codeFenceRe.ReplaceAllString(text, ""))
	if strings.HasPrefix(text, "{") {
		return text
	}
	if m := jsonObjectRe.FindString(text); m != "" {
		return m
	}
	return text
}

// ClampConfidence bounds a model-reported confidence to [0, 1]; models
// occasionally return values like 1.5 despite the prompt.
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// NormalizeCategory maps model output to the fixed enumeration, tolerating
// spacing and hyphenation variants. Unknown values map to OTHER.
func NormalizeCategory(raw string) string {
	raw = categorySepRe.ReplaceAllString(strings.ToUpper(strings.TrimSpace(raw)), "_")
	if Categories[raw] {
		return raw
	}
	for cat := range Categories {
		if strings.Contains(raw, cat) {
			return cat
		}
	}
	return "OTHER"
}
