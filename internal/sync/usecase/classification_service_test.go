package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	syncdomain "jobtrack-backend/internal/sync/domain"
	"jobtrack-backend/pkg/ai"
)

type fakeCacheRepo struct {
	mu      sync.Mutex
	entries map[string]*syncdomain.ClassificationCache // userID/hash
	deleted int64
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{entries: make(map[string]*syncdomain.ClassificationCache)}
}

func (r *fakeCacheRepo) Get(userID, contentHash string) (*syncdomain.ClassificationCache, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[userID+"/"+contentHash]; ok {
		entry.HitCount++
		copied := *entry
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeCacheRepo) Put(entry *syncdomain.ClassificationCache) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *entry
	r.entries[entry.UserID+"/"+entry.ContentHash] = &copied
	return nil
}

func (r *fakeCacheRepo) DeleteByUser(userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for key := range r.entries {
		if len(key) > len(userID) && key[:len(userID)+1] == userID+"/" {
			delete(r.entries, key)
			n++
		}
	}
	r.deleted += n
	return n, nil
}

func (r *fakeCacheRepo) Stats(userID string) (*syncdomain.CacheStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &syncdomain.CacheStats{}
	for key, entry := range r.entries {
		if len(key) > len(userID) && key[:len(userID)+1] == userID+"/" {
			stats.Entries++
			stats.TotalHits += int64(entry.HitCount)
		}
	}
	return stats, nil
}

type fakeL1 struct {
	mu      sync.Mutex
	values  map[string]*ai.Classification
	flushed bool
}

func newFakeL1() *fakeL1 {
	return &fakeL1{values: make(map[string]*ai.Classification)}
}

func (c *fakeL1) Get(ctx context.Context, userID, contentHash string, dest interface{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.values[userID+"/"+contentHash]; ok {
		*dest.(*ai.Classification) = *v
		return true
	}
	return false
}

func (c *fakeL1) Set(ctx context.Context, userID, contentHash string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cls := value.(*ai.Classification)
	copied := *cls
	c.values[userID+"/"+contentHash] = &copied
}

func (c *fakeL1) InvalidateUser(ctx context.Context, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = make(map[string]*ai.Classification)
	c.flushed = true
}

func (c *fakeL1) Stats(ctx context.Context) map[string]interface{} {
	return map[string]interface{}{"status": "fake"}
}

type fakeModel struct {
	mu     sync.Mutex
	calls  int
	result *ai.Classification
	err    error
}

func (m *fakeModel) Classify(ctx context.Context, subject, sender, body string) (*ai.Classification, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	copied := *m.result
	return &copied, nil
}

func (m *fakeModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func newService(model, fallback ai.Classifier, cacheRepo *fakeCacheRepo, l1 *fakeL1) *ClassificationService {
	return NewClassificationService(cacheRepo, l1, model, fallback, nil)
}

func TestClassifyMissCallsModelAndWarmsCaches(t *testing.T) {
	model := &fakeModel{result: &ai.Classification{Category: "REJECTION", Confidence: 0.9, ClassifiedBy: "model"}}
	cacheRepo := newFakeCacheRepo()
	l1 := newFakeL1()
	svc := newService(model, ai.NewHeuristicClassifier(), cacheRepo, l1)

	result, hit, err := svc.Classify(context.Background(), "u1", "Update", "hr@acme.com", "We went with another candidate.")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if hit {
		t.Error("cold cache reported a hit")
	}
	if result.Category != "REJECTION" {
		t.Errorf("category = %q", result.Category)
	}
	if model.callCount() != 1 {
		t.Errorf("model calls = %d, want 1", model.callCount())
	}

	stats, _ := cacheRepo.Stats("u1")
	if stats.Entries != 1 {
		t.Errorf("durable cache entries = %d, want 1", stats.Entries)
	}
	hash := ai.ContentHash("Update", "hr@acme.com", "We went with another candidate.")
	var cached ai.Classification
	if !l1.Get(context.Background(), "u1", hash, &cached) {
		t.Error("volatile cache not warmed")
	}
}

func TestClassifyL2HitSkipsModel(t *testing.T) {
	model := &fakeModel{result: &ai.Classification{Category: "OTHER", ClassifiedBy: "model"}}
	cacheRepo := newFakeCacheRepo()
	l1 := newFakeL1()
	svc := newService(model, ai.NewHeuristicClassifier(), cacheRepo, l1)

	hash := ai.ContentHash("Update", "hr@acme.com", "body")
	confidence := 0.88
	_ = cacheRepo.Put(&syncdomain.ClassificationCache{
		UserID: "u1", ContentHash: hash,
		Category: "REJECTION", Company: "Acme", Confidence: &confidence,
	})

	result, hit, err := svc.Classify(context.Background(), "u1", "Update", "hr@acme.com", "body")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !hit {
		t.Error("warm durable cache reported a miss")
	}
	if result.Category != "REJECTION" || result.ClassifiedBy != "cache" {
		t.Errorf("result = %q by %q", result.Category, result.ClassifiedBy)
	}
	if model.callCount() != 0 {
		t.Errorf("model calls = %d, want 0", model.callCount())
	}

	// The hit should be promoted to the volatile tier.
	var cached ai.Classification
	if !l1.Get(context.Background(), "u1", hash, &cached) {
		t.Error("L2 hit not promoted to L1")
	}
}

func TestClassifyIsolatedPerUser(t *testing.T) {
	model := &fakeModel{result: &ai.Classification{Category: "REJECTION", Confidence: 0.9, ClassifiedBy: "model"}}
	cacheRepo := newFakeCacheRepo()
	svc := newService(model, ai.NewHeuristicClassifier(), cacheRepo, newFakeL1())

	if _, _, err := svc.Classify(context.Background(), "u1", "Update", "hr@acme.com", "body"); err != nil {
		t.Fatalf("Classify u1: %v", err)
	}
	_, hit, err := svc.Classify(context.Background(), "u2", "Update", "hr@acme.com", "body")
	if err != nil {
		t.Fatalf("Classify u2: %v", err)
	}
	if hit {
		t.Error("identical content leaked across users")
	}
	if model.callCount() != 2 {
		t.Errorf("model calls = %d, want 2", model.callCount())
	}
}

func TestClassifyDegradesToHeuristicOnModelFailure(t *testing.T) {
	model := &fakeModel{err: errors.New("rate limited")}
	svc := newService(model, ai.NewHeuristicClassifier(), newFakeCacheRepo(), newFakeL1())

	result, _, err := svc.Classify(context.Background(), "u1", "Application update", "hr@acme.com",
		"Unfortunately we have decided to move forward with other candidates.")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if result.ClassifiedBy != "heuristic" {
		t.Errorf("classified by %q, want heuristic fallback", result.ClassifiedBy)
	}
	if result.Category != "REJECTION" {
		t.Errorf("category = %q, want REJECTION", result.Category)
	}
}

func TestReclassifyBypassesWarmCache(t *testing.T) {
	model := &fakeModel{result: &ai.Classification{Category: "INTERVIEW_REQUEST", Confidence: 0.9, ClassifiedBy: "model"}}
	cacheRepo := newFakeCacheRepo()
	svc := newService(model, ai.NewHeuristicClassifier(), cacheRepo, newFakeL1())

	hash := ai.ContentHash("Subject", "hr@acme.com", "body")
	confidence := 0.5
	_ = cacheRepo.Put(&syncdomain.ClassificationCache{
		UserID: "u1", ContentHash: hash, Category: "OTHER", Confidence: &confidence,
	})

	result, err := svc.Reclassify(context.Background(), "u1", "Subject", "hr@acme.com", "body")
	if err != nil {
		t.Fatalf("Reclassify: %v", err)
	}
	if result.Category != "INTERVIEW_REQUEST" {
		t.Errorf("category = %q, cache entry should have been bypassed", result.Category)
	}
	if model.callCount() != 1 {
		t.Errorf("model calls = %d, want 1", model.callCount())
	}

	// The stale entry must be replaced.
	entry, _ := cacheRepo.Get("u1", hash)
	if entry == nil || entry.Category != "INTERVIEW_REQUEST" {
		t.Error("durable cache not refreshed by reclassification")
	}
}

func TestResetCacheClearsBothTiers(t *testing.T) {
	cacheRepo := newFakeCacheRepo()
	l1 := newFakeL1()
	svc := newService(&fakeModel{result: &ai.Classification{Category: "OTHER"}}, ai.NewHeuristicClassifier(), cacheRepo, l1)

	confidence := 0.9
	_ = cacheRepo.Put(&syncdomain.ClassificationCache{UserID: "u1", ContentHash: "h1", Category: "REJECTION", Confidence: &confidence})
	l1.Set(context.Background(), "u1", "h1", &ai.Classification{Category: "REJECTION"})

	deleted, err := svc.ResetCache(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ResetCache: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	if !l1.flushed {
		t.Error("volatile tier not invalidated")
	}
	stats, _ := cacheRepo.Stats("u1")
	if stats.Entries != 0 {
		t.Errorf("durable entries after reset = %d, want 0", stats.Entries)
	}
}
