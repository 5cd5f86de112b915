package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	appdomain "jobtrack-backend/internal/application/domain"
	apprepo "jobtrack-backend/internal/application/repository"
	authdomain "jobtrack-backend/internal/auth/domain"
	authrepo "jobtrack-backend/internal/auth/repository"
	syncdomain "jobtrack-backend/internal/sync/domain"
	syncrepo "jobtrack-backend/internal/sync/repository"
	"jobtrack-backend/pkg/ai"
	"jobtrack-backend/pkg/config"
	gmailpkg "jobtrack-backend/pkg/gmail"

	"golang.org/x/oauth2"
)

// Notifier pushes progress events to connected clients. *sse.Manager
// satisfies it.
type Notifier interface {
	SendToUser(userID, eventType string, payload interface{}) int
}

// SyncUsecase runs and reports on the Gmail ingestion pipeline.
type SyncUsecase interface {
	// StartSync launches a background sync. Mode is auto, full or
	// incremental; a non-zero after bounds a full sync instead of the
	// default lookback window. Returns ErrSyncInProgress when the user
	// already has one running and ErrAuthRequired without usable Gmail
	// credentials.
	StartSync(userID, mode string, after time.Time) error
	Status(userID string) (*syncdomain.Progress, error)
	// RegisterWatch subscribes the user's mailbox to push notifications.
	RegisterWatch(ctx context.Context, userID string) (time.Time, error)
}

type syncUsecase struct {
	cfg        *config.Config
	userRepo   authrepo.UserRepository
	source     MessageSource
	classifier Classifier
	appRepo    apprepo.ApplicationRepository
	logRepo    apprepo.EmailLogRepository
	stateRepo  syncrepo.SyncStateRepository
	notifier   Notifier
}

func NewSyncUsecase(
	cfg *config.Config,
	userRepo authrepo.UserRepository,
	source MessageSource,
	classifier Classifier,
	appRepo apprepo.ApplicationRepository,
	logRepo apprepo.EmailLogRepository,
	stateRepo syncrepo.SyncStateRepository,
	notifier Notifier,
) SyncUsecase {
	return &syncUsecase{
		cfg:        cfg,
		userRepo:   userRepo,
		source:     source,
		classifier: classifier,
		appRepo:    appRepo,
		logRepo:    logRepo,
		stateRepo:  stateRepo,
		notifier:   notifier,
	}
}

func (u *syncUsecase) StartSync(userID, mode string, after time.Time) error {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return err
	}
	if user == nil || !user.GmailConnected || (user.GmailRefreshToken == "" && user.GmailAccessToken == "") {
		return syncdomain.ErrAuthRequired
	}

	state, acquired, err := u.stateRepo.TryAcquire(userID, "Connecting to Gmail…")
	if err != nil {
		return err
	}
	if !acquired {
		return syncdomain.ErrSyncInProgress
	}

	// The watchdog context bounds the whole run: a wedged run flips to
	// error instead of holding the lock forever.
	ctx, cancel := context.WithTimeout(context.Background(), u.cfg.SyncMaxDuration)
	go func() {
		defer cancel()
		u.run(ctx, user, state, mode, after)
	}()
	return nil
}

func (u *syncUsecase) Status(userID string) (*syncdomain.Progress, error) {
	state, err := u.stateRepo.Get(userID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return &syncdomain.Progress{Status: syncdomain.StatusIdle}, nil
	}
	return progressOf(state), nil
}

func progressOf(state *syncdomain.SyncState) *syncdomain.Progress {
	return &syncdomain.Progress{
		Status:    state.Status,
		Message:   state.Message,
		Processed: state.Processed,
		Total:     state.Total,
		Created:   state.Created,
		Skipped:   state.Skipped,
		Errors:    state.Errors,
		Error:     state.Error,
	}
}

func (u *syncUsecase) tokenSaver(user *authdomain.User) func(*oauth2.Token) error {
	return func(token *oauth2.Token) error {
		user.GmailAccessToken = token.AccessToken
		if token.RefreshToken != "" {
			user.GmailRefreshToken = token.RefreshToken
		}
		expiry := token.Expiry
		user.GmailTokenExpiry = &expiry
		return u.userRepo.UpdateGmailTokens(user)
	}
}

// run executes one sync. It owns the SyncState row exclusively until it
// writes a terminal status.
func (u *syncUsecase) run(ctx context.Context, user *authdomain.User, state *syncdomain.SyncState, mode string, after time.Time) {
	started := time.Now()
	log.Printf("[Sync] Starting sync for user=%s mode=%s", user.ID, mode)

	session, err := u.source.Open(ctx, user, u.tokenSaver(user))
	if err != nil {
		u.fail(state, fmt.Errorf("gmail connection failed: %w", err))
		return
	}

	fullSync, err := u.resolveMode(user.ID, state, mode)
	if err != nil {
		u.fail(state, err)
		return
	}

	u.publish(state, syncdomain.StatusSyncing, "Fetching message list…")

	var ids []string
	var newCursor string
	fallbackNote := ""
	if !fullSync {
		ids, newCursor, err = session.ListHistoryIDs(ctx, state.LastHistoryID)
		if errors.Is(err, gmailpkg.ErrHistoryExpired) {
			// Cursor too old: Gmail dropped the history window. Fall back to
			// a full sync and say so in the final message.
			log.Printf("[Sync] History cursor expired for user=%s, falling back to full sync", user.ID)
			fallbackNote = " (history expired, ran full sync)"
			fullSync = true
			err = nil
		} else if err != nil {
			u.fail(state, fmt.Errorf("history listing failed: %w", err))
			return
		}
	}
	if fullSync {
		ids, err = session.ListFullSyncIDs(ctx, after)
		if err != nil {
			u.fail(state, fmt.Errorf("message listing failed: %w", err))
			return
		}
	}

	// History listings can repeat a message id across pages; each id goes to
	// the worker pool once.
	ids = dedupeIDs(ids)
	state.Total = len(ids)
	u.publish(state, syncdomain.StatusSyncing, "Classifying…")

	counters := u.processMessages(ctx, user.ID, state, session, ids)

	if ctx.Err() != nil {
		u.fail(state, fmt.Errorf("sync aborted: %w", ctx.Err()))
		return
	}

	// Advance the cursor only after the batch is fully persisted.
	now := time.Now()
	if fullSync {
		if cursor, err := session.CurrentHistoryID(ctx); err == nil {
			state.LastHistoryID = cursor
		} else {
			log.Printf("[Sync] Could not read profile history id: %v", err)
		}
		state.LastFullSyncAt = &now
	} else if newCursor != "" {
		state.LastHistoryID = newCursor
	}
	state.LastSyncedAt = &now

	message := fmt.Sprintf("Sync complete: %d created, %d skipped, %d errors%s",
		counters.created, counters.skipped, counters.errors, fallbackNote)
	u.publish(state, syncdomain.StatusIdle, message)
	u.notifier.SendToUser(user.ID, "sync_complete", progressOf(state))
	log.Printf("[Sync] Finished for user=%s in %s: %s", user.ID, time.Since(started).Round(time.Millisecond), message)
}

// resolveMode turns auto into full or incremental: full when there is no
// cursor yet or the user has no applications at all.
func (u *syncUsecase) resolveMode(userID string, state *syncdomain.SyncState, mode string) (bool, error) {
	switch mode {
	case syncdomain.ModeFull:
		return true, nil
	case syncdomain.ModeIncremental:
		if state.LastHistoryID == "" {
			return true, nil
		}
		return false, nil
	default:
		if state.LastHistoryID == "" {
			return true, nil
		}
		count, err := u.appRepo.Count(userID)
		if err != nil {
			return false, err
		}
		return count == 0, nil
	}
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

type runCounters struct {
	processed int
	created   int
	skipped   int
	errors    int
}

// processMessages fans the candidate ids out to a bounded worker pool. Each
// message is fully persisted before it is counted, so progress numbers never
// run ahead of the database.
func (u *syncUsecase) processMessages(ctx context.Context, userID string, state *syncdomain.SyncState, session MailSession, ids []string) *runCounters {
	counters := &runCounters{}
	var mu sync.Mutex

	jobs := make(chan string)
	var wg sync.WaitGroup

	workers := u.cfg.ClassifyWorkers
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				outcome := u.processOne(ctx, userID, session, id)

				mu.Lock()
				counters.processed++
				switch outcome {
				case outcomeCreated:
					counters.created++
				case outcomeSkipped:
					counters.skipped++
				case outcomeError:
					counters.errors++
				}
				state.Processed = counters.processed
				state.Created = counters.created
				state.Skipped = counters.skipped
				state.Errors = counters.errors
				u.publish(state, syncdomain.StatusSyncing, "Classifying…")
				mu.Unlock()
			}
		}()
	}

	for _, id := range ids {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return counters
		case jobs <- id:
		}
	}
	close(jobs)
	wg.Wait()
	return counters
}

type outcome int

const (
	outcomeCreated outcome = iota
	outcomeSkipped
	outcomeError
)

func (u *syncUsecase) processOne(ctx context.Context, userID string, session MailSession, id string) outcome {
	seen, err := u.logRepo.Exists(userID, id)
	if err != nil {
		log.Printf("[Sync] Idempotency check failed for %s: %v", id, err)
		return outcomeError
	}
	if seen {
		return outcomeSkipped
	}

	email, err := session.GetMessage(ctx, id)
	if err != nil {
		u.logError(userID, id, err)
		return outcomeError
	}

	// Cheap rule-based pre-filter: billing, marketing and account noise
	// never reaches the classifier.
	if ai.CheckRelevance(email.Subject, email.Body, email.From) == ai.RelevanceNotJob {
		if err := u.logRepo.Create(&appdomain.EmailLog{
			UserID:         userID,
			GmailMessageID: id,
			Classification: "IRRELEVANT",
		}); err != nil {
			log.Printf("[Sync] Email log write failed for %s: %v", id, err)
		}
		return outcomeSkipped
	}

	cls, _, err := u.classifier.Classify(ctx, userID, email.Subject, email.From, email.Body)
	if err != nil {
		u.logError(userID, id, err)
		return outcomeError
	}

	app := buildApplication(userID, email, cls)
	created, err := u.appRepo.Upsert(app)
	if err != nil {
		u.logError(userID, id, err)
		return outcomeError
	}

	if err := u.logRepo.Create(&appdomain.EmailLog{
		UserID:         userID,
		GmailMessageID: id,
		Classification: cls.Category,
	}); err != nil {
		log.Printf("[Sync] Email log write failed for %s: %v", id, err)
	}

	if created {
		return outcomeCreated
	}
	return outcomeSkipped
}

func (u *syncUsecase) logError(userID, gmailMessageID string, cause error) {
	log.Printf("[Sync] Message %s failed: %v", gmailMessageID, cause)
	if err := u.logRepo.Create(&appdomain.EmailLog{
		UserID:         userID,
		GmailMessageID: gmailMessageID,
		Error:          cause.Error(),
	}); err != nil {
		log.Printf("[Sync] Email log write failed for %s: %v", gmailMessageID, err)
	}
}

// publish persists the state row and mirrors it to SSE subscribers. Terminal
// transitions are announced by the dedicated sync_complete / sync_error
// events, which also end terminal-aware streams.
func (u *syncUsecase) publish(state *syncdomain.SyncState, status, message string) {
	state.Status = status
	state.Message = message
	if err := u.stateRepo.Update(state); err != nil {
		log.Printf("[Sync] State update failed: %v", err)
	}
	if status == syncdomain.StatusSyncing {
		u.notifier.SendToUser(state.UserID, "sync_progress", progressOf(state))
	}
}

func (u *syncUsecase) fail(state *syncdomain.SyncState, cause error) {
	log.Printf("[Sync] Failed for user=%s: %v", state.UserID, cause)
	state.Error = cause.Error()
	u.publish(state, syncdomain.StatusError, "Sync failed")
	u.notifier.SendToUser(state.UserID, "sync_error", progressOf(state))
}

func (u *syncUsecase) RegisterWatch(ctx context.Context, userID string) (time.Time, error) {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return time.Time{}, err
	}
	if user == nil || !user.GmailConnected {
		return time.Time{}, syncdomain.ErrAuthRequired
	}

	session, err := u.source.Open(ctx, user, u.tokenSaver(user))
	if err != nil {
		return time.Time{}, err
	}

	topic := fmt.Sprintf("projects/%s/topics/%s", u.cfg.GoogleProjectID, u.cfg.GooglePubSubTopic)
	expiry, err := session.RegisterWatch(ctx, topic)
	if err != nil {
		return time.Time{}, err
	}

	user.GmailWatchExpiry = &expiry
	if err := u.userRepo.Update(user); err != nil {
		log.Printf("[Sync] Could not persist watch expiry: %v", err)
	}
	return expiry, nil
}
