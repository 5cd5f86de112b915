package usecase

import (
	"context"
	"log"

	apprepo "jobtrack-backend/internal/application/repository"
	syncdomain "jobtrack-backend/internal/sync/domain"
	syncrepo "jobtrack-backend/internal/sync/repository"
	"jobtrack-backend/pkg/ai"
)

// Classifier is the cache-aware classification entry point used by the sync
// and reprocess pipelines. The bool result reports whether the answer came
// from cache (no model call).
type Classifier interface {
	Classify(ctx context.Context, userID, subject, sender, body string) (*ai.Classification, bool, error)
}

// L1Cache is the volatile cache tier in front of the database.
// *cache.Classification satisfies it; a nil-backed instance degrades to
// always-miss.
type L1Cache interface {
	Get(ctx context.Context, userID, contentHash string, dest interface{}) bool
	Set(ctx context.Context, userID, contentHash string, value interface{})
	InvalidateUser(ctx context.Context, userID string)
	Stats(ctx context.Context) map[string]interface{}
}

// ClassificationService resolves classifications cache-first: Redis, then
// the classification_cache table, then the model. Model failures degrade to
// the heuristic classifier so one bad message never aborts a batch.
type ClassificationService struct {
	cacheRepo   syncrepo.ClassificationCacheRepository
	l1          L1Cache
	model       ai.Classifier
	fallback    ai.Classifier
	companyRepo apprepo.CompanyRepository
}

func NewClassificationService(
	cacheRepo syncrepo.ClassificationCacheRepository,
	l1 L1Cache,
	model ai.Classifier,
	fallback ai.Classifier,
	companyRepo apprepo.CompanyRepository,
) *ClassificationService {
	return &ClassificationService{
		cacheRepo:   cacheRepo,
		l1:          l1,
		model:       model,
		fallback:    fallback,
		companyRepo: companyRepo,
	}
}

func (s *ClassificationService) Classify(ctx context.Context, userID, subject, sender, body string) (*ai.Classification, bool, error) {
	hash := ai.ContentHash(subject, sender, body)

	var cached ai.Classification
	if s.l1 != nil && s.l1.Get(ctx, userID, hash, &cached) {
		return &cached, true, nil
	}

	entry, err := s.cacheRepo.Get(userID, hash)
	if err != nil {
		return nil, false, err
	}
	if entry != nil {
		result := classificationFromCache(entry)
		if s.l1 != nil {
			s.l1.Set(ctx, userID, hash, result)
		}
		return result, true, nil
	}

	result, err := s.classifyFresh(ctx, userID, hash, subject, sender, body)
	if err != nil {
		return nil, false, err
	}
	return result, false, nil
}

// Reclassify always calls the model and refreshes both cache tiers, so a
// reprocess run sees current model behavior instead of stale cache entries.
func (s *ClassificationService) Reclassify(ctx context.Context, userID, subject, sender, body string) (*ai.Classification, error) {
	hash := ai.ContentHash(subject, sender, body)
	return s.classifyFresh(ctx, userID, hash, subject, sender, body)
}

func (s *ClassificationService) classifyFresh(ctx context.Context, userID, hash, subject, sender, body string) (*ai.Classification, error) {
	result, err := s.model.Classify(ctx, subject, sender, body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("[Classify] Model failed, degrading to heuristic: %v", err)
		result, err = s.fallback.Classify(ctx, subject, sender, body)
		if err != nil {
			return nil, err
		}
	}

	if s.companyRepo != nil && result.CompanyName != "" {
		if canonical, err := s.companyRepo.Canonicalize(result.CompanyName); err == nil {
			result.CompanyName = canonical
		}
	}

	confidence := result.Confidence
	if err := s.cacheRepo.Put(&syncdomain.ClassificationCache{
		UserID:      userID,
		ContentHash: hash,
		Category:    result.Category,
		Subcategory: result.Subcategory,
		Company:     result.CompanyName,
		Position:    result.JobTitle,
		Confidence:  &confidence,
		Reasoning:   result.Reasoning,
	}); err != nil {
		// Cache writes are best effort; the classification still stands.
		log.Printf("[Classify] Cache write failed: %v", err)
	}
	if s.l1 != nil {
		s.l1.Set(ctx, userID, hash, result)
	}

	return result, nil
}

func classificationFromCache(entry *syncdomain.ClassificationCache) *ai.Classification {
	result := &ai.Classification{
		Category:     entry.Category,
		Subcategory:  entry.Subcategory,
		CompanyName:  entry.Company,
		JobTitle:     entry.Position,
		Reasoning:    entry.Reasoning,
		ClassifiedBy: "cache",
	}
	if entry.Confidence != nil {
		result.Confidence = *entry.Confidence
	}
	return result
}

// ResetCache drops every cached classification for the user, both tiers.
// The next sync or reprocess reclassifies from scratch.
func (s *ClassificationService) ResetCache(ctx context.Context, userID string) (int64, error) {
	deleted, err := s.cacheRepo.DeleteByUser(userID)
	if err != nil {
		return 0, err
	}
	if s.l1 != nil {
		s.l1.InvalidateUser(ctx, userID)
	}
	log.Printf("[Classify] Cache reset for user=%s, %d entries dropped", userID, deleted)
	return deleted, nil
}

// CacheStats merges durable cache counters with the Redis tier status.
func (s *ClassificationService) CacheStats(ctx context.Context, userID string) (map[string]interface{}, error) {
	stats, err := s.cacheRepo.Stats(userID)
	if err != nil {
		return nil, err
	}

	out := map[string]interface{}{
		"entries":    stats.Entries,
		"total_hits": stats.TotalHits,
	}
	if s.l1 != nil {
		out["redis"] = s.l1.Stats(ctx)
	}
	return out, nil
}
