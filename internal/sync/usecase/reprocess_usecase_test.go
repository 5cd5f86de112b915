package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	appdomain "jobtrack-backend/internal/application/domain"
	appusecase "jobtrack-backend/internal/application/usecase"
	syncdomain "jobtrack-backend/internal/sync/domain"
	"jobtrack-backend/pkg/ai"
)

type fakeReclassifier struct {
	mu          sync.Mutex
	calls       int
	cachedCalls int
	result      *ai.Classification
}

func (c *fakeReclassifier) Reclassify(ctx context.Context, userID, subject, sender, body string) (*ai.Classification, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	copied := *c.result
	return &copied, nil
}

func (c *fakeReclassifier) Classify(ctx context.Context, userID, subject, sender, body string) (*ai.Classification, bool, error) {
	c.mu.Lock()
	c.cachedCalls++
	c.mu.Unlock()
	copied := *c.result
	return &copied, true, nil
}

func (c *fakeReclassifier) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *fakeReclassifier) cachedCallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cachedCalls
}

func waitForReprocessIdle(t *testing.T, repo *fakeReprocessStateRepo) *syncdomain.ReprocessState {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		state, _ := repo.Get("u1")
		if state != nil && state.Status != syncdomain.StatusSyncing {
			return state
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("reprocess did not reach a terminal state")
	return nil
}

func storedApplication(id, gmailID, category string, confidence float64, needsReview bool) *appdomain.Application {
	received := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	return &appdomain.Application{
		ID:               id,
		UserID:           "u1",
		GmailMessageID:   gmailID,
		CompanyName:      "Acme",
		Category:         category,
		ApplicationStage: appdomain.StageFromCategory(category),
		Status:           appdomain.StatusFromStage(appdomain.StageFromCategory(category)),
		Confidence:       &confidence,
		NeedsReview:      needsReview,
		EmailSubject:     "Subject " + id,
		EmailFrom:        "hr@acme.com",
		EmailBody:        "Body " + id,
		ReceivedDate:     &received,
	}
}

func TestReprocessUpdatesChangedApplications(t *testing.T) {
	appRepo := newFakeAppRepo()
	_ = appRepo.Save(storedApplication("a1", "m1", appdomain.CategoryOther, 0.4, true))
	stateRepo := &fakeReprocessStateRepo{}
	classifier := &fakeReclassifier{result: &ai.Classification{
		Category: appdomain.CategoryRejection, Confidence: 0.9, ClassifiedBy: "gpt-4o-mini",
	}}

	uc := NewReprocessUsecase(testConfig(), appRepo, classifier, stateRepo, &fakeNotifier{})
	if err := uc.Start("u1", syncdomain.ReprocessOptions{}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	state := waitForReprocessIdle(t, stateRepo)
	if state.Updated != 1 || state.Unchanged != 0 || state.Errors != 0 {
		t.Fatalf("counters = updated %d unchanged %d errors %d, want 1/0/0", state.Updated, state.Unchanged, state.Errors)
	}

	app, _ := appRepo.FindByID("u1", "a1")
	if app.Category != appdomain.CategoryRejection {
		t.Errorf("category = %q, want REJECTION", app.Category)
	}
	if app.ApplicationStage != appdomain.StageRejected || app.Status != appdomain.StatusRejected {
		t.Errorf("stage/status = %q/%q, want Rejected/REJECTED", app.ApplicationStage, app.Status)
	}
	if app.NeedsReview {
		t.Error("high-confidence reclassification still flagged for review")
	}
	if app.ProcessedBy != "gpt-4o-mini-reprocess" {
		t.Errorf("processed by = %q", app.ProcessedBy)
	}
}

func TestReprocessDryRunDoesNotPersist(t *testing.T) {
	appRepo := newFakeAppRepo()
	_ = appRepo.Save(storedApplication("a1", "m1", appdomain.CategoryOther, 0.4, true))
	stateRepo := &fakeReprocessStateRepo{}
	classifier := &fakeReclassifier{result: &ai.Classification{
		Category: appdomain.CategoryRejection, Confidence: 0.9, ClassifiedBy: "gpt-4o-mini",
	}}

	uc := NewReprocessUsecase(testConfig(), appRepo, classifier, stateRepo, &fakeNotifier{})
	if err := uc.Start("u1", syncdomain.ReprocessOptions{DryRun: true}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	state := waitForReprocessIdle(t, stateRepo)
	if state.Updated != 1 {
		t.Fatalf("updated = %d, want 1 (dry run still counts)", state.Updated)
	}

	app, _ := appRepo.FindByID("u1", "a1")
	if app.Category != appdomain.CategoryOther {
		t.Errorf("category = %q, dry run must not persist changes", app.Category)
	}
}

func TestReprocessOnlyNeedsReviewFilter(t *testing.T) {
	appRepo := newFakeAppRepo()
	_ = appRepo.Save(storedApplication("a1", "m1", appdomain.CategoryOther, 0.4, true))
	_ = appRepo.Save(storedApplication("a2", "m2", appdomain.CategoryRejection, 0.95, false))
	stateRepo := &fakeReprocessStateRepo{}
	classifier := &fakeReclassifier{result: &ai.Classification{
		Category: appdomain.CategoryRejection, Confidence: 0.9, ClassifiedBy: "gpt-4o-mini",
	}}

	uc := NewReprocessUsecase(testConfig(), appRepo, classifier, stateRepo, &fakeNotifier{})
	if err := uc.Start("u1", syncdomain.ReprocessOptions{OnlyNeedsReview: true}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	state := waitForReprocessIdle(t, stateRepo)
	if state.Total != 1 {
		t.Errorf("total = %d, want only the needs-review row", state.Total)
	}
	if classifier.cachedCallCount() != 1 {
		t.Errorf("classifier calls = %d, want 1", classifier.cachedCallCount())
	}
}

func TestReprocessConfidenceThresholdFilter(t *testing.T) {
	appRepo := newFakeAppRepo()
	_ = appRepo.Save(storedApplication("a1", "m1", appdomain.CategoryOther, 0.4, true))
	_ = appRepo.Save(storedApplication("a2", "m2", appdomain.CategoryRejection, 0.95, false))
	_ = appRepo.Save(storedApplication("a3", "m3", appdomain.CategoryInterviewRequest, 0.7, false))
	stateRepo := &fakeReprocessStateRepo{}
	classifier := &fakeReclassifier{result: &ai.Classification{
		Category: appdomain.CategoryRejection, Confidence: 0.9, ClassifiedBy: "gpt-4o-mini",
	}}

	uc := NewReprocessUsecase(testConfig(), appRepo, classifier, stateRepo, &fakeNotifier{})
	threshold := 0.7
	if err := uc.Start("u1", syncdomain.ReprocessOptions{MinConfidence: &threshold}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Strict less-than: a row already at the threshold is confident enough.
	state := waitForReprocessIdle(t, stateRepo)
	if state.Total != 1 {
		t.Errorf("total = %d, want only the row below the threshold", state.Total)
	}
	if classifier.cachedCallCount() != 1 {
		t.Errorf("classifier calls = %d, want 1", classifier.cachedCallCount())
	}
}

func TestReprocessBypassCacheForcesModel(t *testing.T) {
	appRepo := newFakeAppRepo()
	_ = appRepo.Save(storedApplication("a1", "m1", appdomain.CategoryOther, 0.4, true))
	stateRepo := &fakeReprocessStateRepo{}
	classifier := &fakeReclassifier{result: &ai.Classification{
		Category: appdomain.CategoryRejection, Confidence: 0.9, ClassifiedBy: "gpt-4o-mini",
	}}

	uc := NewReprocessUsecase(testConfig(), appRepo, classifier, stateRepo, &fakeNotifier{})
	if err := uc.Start("u1", syncdomain.ReprocessOptions{BypassCache: true}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitForReprocessIdle(t, stateRepo)
	if classifier.callCount() != 1 || classifier.cachedCallCount() != 0 {
		t.Errorf("reclassify/classify calls = %d/%d, want 1/0",
			classifier.callCount(), classifier.cachedCallCount())
	}
}

func TestReprocessOneUpdatesAndReturnsApplication(t *testing.T) {
	appRepo := newFakeAppRepo()
	_ = appRepo.Save(storedApplication("a1", "m1", appdomain.CategoryOther, 0.4, true))
	classifier := &fakeReclassifier{result: &ai.Classification{
		Category: appdomain.CategoryRejection, Confidence: 0.9, ClassifiedBy: "gpt-4o-mini",
	}}
	uc := NewReprocessUsecase(testConfig(), appRepo, classifier, &fakeReprocessStateRepo{}, &fakeNotifier{})

	app, err := uc.ReprocessOne(context.Background(), "u1", "a1")
	if err != nil {
		t.Fatalf("ReprocessOne: %v", err)
	}
	if app.Category != appdomain.CategoryRejection {
		t.Errorf("category = %q, want REJECTION", app.Category)
	}

	stored, _ := appRepo.FindByID("u1", "a1")
	if stored.Category != appdomain.CategoryRejection {
		t.Error("reclassification not persisted")
	}
	if classifier.callCount() != 1 {
		t.Errorf("reclassify calls = %d, want 1 (single-record runs always hit the model)", classifier.callCount())
	}
}

func TestReprocessOneUnknownApplication(t *testing.T) {
	uc := NewReprocessUsecase(testConfig(), newFakeAppRepo(), &fakeReclassifier{result: &ai.Classification{}}, &fakeReprocessStateRepo{}, &fakeNotifier{})

	_, err := uc.ReprocessOne(context.Background(), "u1", "missing")
	if !errors.Is(err, appusecase.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestReprocessRejectsConcurrentRun(t *testing.T) {
	stateRepo := &fakeReprocessStateRepo{state: &syncdomain.ReprocessState{UserID: "u1", Status: syncdomain.StatusSyncing}}
	uc := NewReprocessUsecase(testConfig(), newFakeAppRepo(), &fakeReclassifier{result: &ai.Classification{}}, stateRepo, &fakeNotifier{})

	if err := uc.Start("u1", syncdomain.ReprocessOptions{}); err != syncdomain.ErrSyncInProgress {
		t.Fatalf("err = %v, want ErrSyncInProgress", err)
	}
}

func TestApplyReclassificationKeepsExistingValues(t *testing.T) {
	confidence := 0.85
	app := &appdomain.Application{
		CompanyName:      "Acme",
		JobTitle:         "Backend Engineer",
		Category:         appdomain.CategoryApplicationReceived,
		ApplicationStage: appdomain.StageApplied,
		Status:           appdomain.StatusApplied,
		Confidence:       &confidence,
	}

	// Empty and Unknown values must not clobber what is already there.
	changed := applyReclassification(app, &ai.Classification{
		Category:    appdomain.CategoryApplicationReceived,
		CompanyName: "Unknown",
		JobTitle:    "",
		Confidence:  0.85,
	})
	if changed {
		t.Error("no-op reclassification reported a change")
	}
	if app.CompanyName != "Acme" || app.JobTitle != "Backend Engineer" {
		t.Errorf("existing values clobbered: %q / %q", app.CompanyName, app.JobTitle)
	}
}

func TestApplyReclassificationStageTransition(t *testing.T) {
	confidence := 0.5
	received := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	app := &appdomain.Application{
		Category:         appdomain.CategoryApplicationReceived,
		ApplicationStage: appdomain.StageApplied,
		Status:           appdomain.StatusApplied,
		Confidence:       &confidence,
		ReceivedDate:     &received,
	}

	changed := applyReclassification(app, &ai.Classification{
		Category:   appdomain.CategoryInterviewRequest,
		Confidence: 0.85,
	})
	if !changed {
		t.Fatal("stage transition not reported as a change")
	}
	if app.ApplicationStage != appdomain.StageInterview || app.Status != appdomain.StatusInterviewing {
		t.Errorf("stage/status = %q/%q", app.ApplicationStage, app.Status)
	}
	if app.InterviewAt == nil || !app.InterviewAt.Equal(received) {
		t.Error("interview timestamp not stamped from the received date")
	}
}
