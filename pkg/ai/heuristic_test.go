package ai

import (
	"context"
	"testing"
)

func TestHeuristicDetectsRejection(t *testing.T) {
	h := NewHeuristicClassifier()
	result, err := h.Classify(context.Background(),
		"Update on your application",
		"recruiting@acme.com",
		"Thank you for your interest. Unfortunately, we have decided to move forward with other candidates.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Category != "REJECTION" {
		t.Errorf("category = %s, want REJECTION", result.Category)
	}
	if result.ClassifiedBy != "heuristic" {
		t.Errorf("classified_by = %s, want heuristic", result.ClassifiedBy)
	}
	if result.NeedsReview() != true {
		t.Error("heuristic results should be flagged for review")
	}
}

func TestHeuristicDetectsConfirmation(t *testing.T) {
	h := NewHeuristicClassifier()
	result, err := h.Classify(context.Background(),
		"Thanks for applying!",
		"jobs@acme.com",
		"Thank you for applying for the Backend Engineer role at Acme. We will review your application.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Category != "APPLICATION_RECEIVED" {
		t.Errorf("category = %s, want APPLICATION_RECEIVED", result.Category)
	}
	if result.JobTitle != "Backend Engineer" {
		t.Errorf("job_title = %q, want Backend Engineer", result.JobTitle)
	}
	if result.CompanyName != "Acme" {
		t.Errorf("company = %q, want Acme", result.CompanyName)
	}
}

func TestHeuristicConditionalInterviewIsNotInterview(t *testing.T) {
	h := NewHeuristicClassifier()
	result, _ := h.Classify(context.Background(),
		"We received your application",
		"noreply@acme.com",
		"We received your application. If selected for an interview, our team will contact you.")
	if result.Category == "INTERVIEW_REQUEST" {
		t.Error("conditional interview language must not classify as INTERVIEW_REQUEST")
	}
}

func TestApplyGuardsRejectionOverridesConfirmation(t *testing.T) {
	category, note := ApplyGuards("APPLICATION_RECEIVED",
		"Thank you for your interest",
		"After careful consideration, we will not be moving forward with your application.")
	if category != "REJECTION" {
		t.Errorf("category = %s, want REJECTION", category)
	}
	if note == "" {
		t.Error("expected an override note")
	}
}

func TestApplyGuardsConcreteInviteSurvives(t *testing.T) {
	category, _ := ApplyGuards("INTERVIEW_REQUEST",
		"Interview invitation",
		"We'd like to schedule a technical interview. If we move forward after that, you will meet the team.")
	if category != "INTERVIEW_REQUEST" {
		t.Errorf("category = %s, want INTERVIEW_REQUEST (concrete invite present)", category)
	}
}

func TestCompanyFromSender(t *testing.T) {
	cases := []struct {
		sender string
		want   string
	}{
		{"recruiting@google.com", "Google"},
		{"someone@gmail.com", "Unknown"},
		{"no-reply@acme.greenhouse.io", "Unknown"},
		{"Jane Doe <jane@stripe.com>", "Stripe"},
		{"not-an-email", "Unknown"},
	}
	for _, tc := range cases {
		if got := CompanyFromSender(tc.sender); got != tc.want {
			t.Errorf("CompanyFromSender(%q) = %q, want %q", tc.sender, got, tc.want)
		}
	}
}

func TestNormalizeCompanyStripsSuffixes(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Acme Inc.", "Acme"},
		{"Globex, LLC", "Globex"},
		{"Initech Corporation", "Initech"},
		{"", "Unknown"},
		{"Stripe", "Stripe"},
	}
	for _, tc := range cases {
		if got := NormalizeCompany(tc.in); got != tc.want {
			t.Errorf("NormalizeCompany(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeCategory(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"rejection", "REJECTION"},
		{"Interview Request", "INTERVIEW_REQUEST"},
		{"interview-request", "INTERVIEW_REQUEST"},
		{"something weird", "OTHER"},
		{"OFFER", "OFFER"},
	}
	for _, tc := range cases {
		if got := NormalizeCategory(tc.in); got != tc.want {
			t.Errorf("NormalizeCategory(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestClampConfidence(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{-0.2, 0},
		{0, 0},
		{0.85, 0.85},
		{1, 1},
		{1.5, 1},
	}
	for _, tc := range cases {
		if got := ClampConfidence(tc.in); got != tc.want {
			t.Errorf("ClampConfidence(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestContentHashStableUnderFormatting(t *testing.T) {
	a := ContentHash("Subject  Line", "From@Acme.com", "Hello\n\nWorld")
	b := ContentHash("subject line", "from@acme.com", "hello world")
	if a != b {
		t.Error("hash should be stable under case and whitespace differences")
	}

	c := ContentHash("different subject", "from@acme.com", "hello world")
	if a == c {
		t.Error("different content must not collide")
	}
}
