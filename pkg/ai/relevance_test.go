package ai

import "testing"

func TestCheckRelevanceATSSenderAlwaysJob(t *testing.T) {
	// ATS mail wins even when the sender looks like an automated no-reply.
	got := CheckRelevance("Notification", "You have a new message.", "no-reply@acme.greenhouse.io")
	if got != RelevanceJob {
		t.Errorf("relevance = %v, want RelevanceJob for ATS sender", got)
	}
}

func TestCheckRelevanceJobKeywordsBeatSenderRules(t *testing.T) {
	got := CheckRelevance("Thank you for applying", "We received your application.", "noreply@acme.com")
	if got != RelevanceJob {
		t.Errorf("relevance = %v, want RelevanceJob (job phrasing outranks noreply sender)", got)
	}
}

func TestCheckRelevanceRejectsBillingNoise(t *testing.T) {
	cases := []struct {
		name    string
		subject string
		sender  string
		body    string
	}{
		{"billing sender", "Monthly statement", "billing@acmestore.com", "Your statement is ready."},
		{"receipt subject", "Your receipt from Acme Store", "store@acmestore.com", "Order #1234 has been charged."},
		{"password reset", "Password reset requested", "account@service.example", "Click here to reset your password."},
		{"social ping", "Someone liked your post", "ping@social.example", "Tap to see who."},
		{"newsletter digest", "Your weekly digest", "updates@blog.example", "Top stories this week."},
		{"payments domain", "Action needed", "team@payments.example.com", "Please review your account."},
	}
	for _, tc := range cases {
		if got := CheckRelevance(tc.subject, tc.body, tc.sender); got != RelevanceNotJob {
			t.Errorf("%s: relevance = %v, want RelevanceNotJob", tc.name, got)
		}
	}
}

func TestCheckRelevanceAmbiguousGoesToClassifier(t *testing.T) {
	got := CheckRelevance("Quick question", "Do you have time to chat this week?", "jane@acme.com")
	if got != RelevanceUnknown {
		t.Errorf("relevance = %v, want RelevanceUnknown", got)
	}
}

func TestCheckRelevanceRecruiterKeyword(t *testing.T) {
	got := CheckRelevance("Opportunity at Globex", "I'm a technical recruiter and came across your profile.", "jane@globex.com")
	if got != RelevanceJob {
		t.Errorf("relevance = %v, want RelevanceJob", got)
	}
}
