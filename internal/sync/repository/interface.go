package repository

import syncdomain "jobtrack-backend/internal/sync/domain"

// SyncStateRepository persists the per-user sync row. The row doubles as the
// run lock: TryAcquire flips it to syncing atomically.
type SyncStateRepository interface {
	Get(userID string) (*syncdomain.SyncState, error)
	// TryAcquire transitions the user's row to syncing and resets the run
	// counters. Returns false when a sync already holds the row.
	TryAcquire(userID, message string) (*syncdomain.SyncState, bool, error)
	Update(state *syncdomain.SyncState) error
}

// ClassificationCacheRepository is the durable (L2) classification cache.
type ClassificationCacheRepository interface {
	// Get returns the entry for (user, hash) or nil on miss, bumping the hit
	// counter on hit.
	Get(userID, contentHash string) (*syncdomain.ClassificationCache, error)
	Put(entry *syncdomain.ClassificationCache) error
	DeleteByUser(userID string) (int64, error)
	Stats(userID string) (*syncdomain.CacheStats, error)
}

// ReprocessStateRepository persists reprocess run state, same locking
// discipline as SyncStateRepository.
type ReprocessStateRepository interface {
	Get(userID string) (*syncdomain.ReprocessState, error)
	TryAcquire(userID, message string) (*syncdomain.ReprocessState, bool, error)
	Update(state *syncdomain.ReprocessState) error
}
