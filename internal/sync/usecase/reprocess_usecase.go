package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	appdomain "jobtrack-backend/internal/application/domain"
	apprepo "jobtrack-backend/internal/application/repository"
	appusecase "jobtrack-backend/internal/application/usecase"
	syncdomain "jobtrack-backend/internal/sync/domain"
	syncrepo "jobtrack-backend/internal/sync/repository"
	"jobtrack-backend/pkg/ai"
	"jobtrack-backend/pkg/config"
)

const defaultReprocessBatch = 20

// Reclassifier classifies email content either cache-first or with a forced
// model call that bypasses cache reads. *ClassificationService satisfies it.
type Reclassifier interface {
	Classify(ctx context.Context, userID, subject, sender, body string) (*ai.Classification, bool, error)
	Reclassify(ctx context.Context, userID, subject, sender, body string) (*ai.Classification, error)
}

// ReprocessUsecase re-runs classification over stored applications, for
// example after a prompt or model change.
type ReprocessUsecase interface {
	Start(userID string, opts syncdomain.ReprocessOptions) error
	Status(userID string) (*syncdomain.ReprocessState, error)
	ReprocessOne(ctx context.Context, userID, applicationID string) (*appdomain.Application, error)
}

type reprocessUsecase struct {
	cfg        *config.Config
	appRepo    apprepo.ApplicationRepository
	classifier Reclassifier
	stateRepo  syncrepo.ReprocessStateRepository
	notifier   Notifier
}

func NewReprocessUsecase(
	cfg *config.Config,
	appRepo apprepo.ApplicationRepository,
	classifier Reclassifier,
	stateRepo syncrepo.ReprocessStateRepository,
	notifier Notifier,
) ReprocessUsecase {
	return &reprocessUsecase{
		cfg:        cfg,
		appRepo:    appRepo,
		classifier: classifier,
		stateRepo:  stateRepo,
		notifier:   notifier,
	}
}

func (u *reprocessUsecase) Start(userID string, opts syncdomain.ReprocessOptions) error {
	state, acquired, err := u.stateRepo.TryAcquire(userID, "Selecting applications…")
	if err != nil {
		return err
	}
	if !acquired {
		return syncdomain.ErrSyncInProgress
	}
	state.DryRun = opts.DryRun

	ctx, cancel := context.WithTimeout(context.Background(), u.cfg.SyncMaxDuration)
	go func() {
		defer cancel()
		u.run(ctx, userID, state, opts)
	}()
	return nil
}

func (u *reprocessUsecase) Status(userID string) (*syncdomain.ReprocessState, error) {
	state, err := u.stateRepo.Get(userID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return &syncdomain.ReprocessState{UserID: userID, Status: syncdomain.StatusIdle}, nil
	}
	return state, nil
}

func (u *reprocessUsecase) run(ctx context.Context, userID string, state *syncdomain.ReprocessState, opts syncdomain.ReprocessOptions) {
	log.Printf("[Reprocess] Starting for user=%s dry_run=%v", userID, opts.DryRun)

	apps, err := u.appRepo.ListForReprocess(userID, apprepo.ReprocessFilter{
		OnlyNeedsReview: opts.OnlyNeedsReview,
		ConfidenceBelow: opts.MinConfidence,
		Limit:           opts.Limit,
	})
	if err != nil {
		u.fail(state, err)
		return
	}

	state.Total = len(apps)
	u.publish(state, syncdomain.StatusSyncing, "Re-classifying…")

	batch := opts.BatchSize
	if batch < 1 {
		batch = defaultReprocessBatch
	}

	for i := 0; i < len(apps); i++ {
		if ctx.Err() != nil {
			u.fail(state, fmt.Errorf("reprocess aborted: %w", ctx.Err()))
			return
		}

		app := &apps[i]
		cls, err := u.classify(ctx, userID, app, opts.BypassCache)
		if err != nil {
			log.Printf("[Reprocess] Application %s failed: %v", app.ID, err)
			state.Errors++
		} else if applyReclassification(app, cls) {
			if !opts.DryRun {
				if err := u.appRepo.Save(app); err != nil {
					log.Printf("[Reprocess] Save failed for %s: %v", app.ID, err)
					state.Errors++
					state.Processed++
					continue
				}
			}
			state.Updated++
		} else {
			state.Unchanged++
		}
		state.Processed++

		// One state write per batch keeps the row from becoming a hot spot.
		if state.Processed%batch == 0 {
			u.publish(state, syncdomain.StatusSyncing, "Re-classifying…")
		}
	}

	message := fmt.Sprintf("Reprocess complete: %d updated, %d unchanged, %d errors",
		state.Updated, state.Unchanged, state.Errors)
	if opts.DryRun {
		message = "Dry run: " + message
	}
	u.publish(state, syncdomain.StatusIdle, message)
	u.notifier.SendToUser(userID, "reprocess_complete", state)
	log.Printf("[Reprocess] Finished for user=%s: %s", userID, message)
}

func (u *reprocessUsecase) classify(ctx context.Context, userID string, app *appdomain.Application, bypassCache bool) (*ai.Classification, error) {
	if bypassCache {
		return u.classifier.Reclassify(ctx, userID, app.EmailSubject, app.EmailFrom, app.EmailBody)
	}
	cls, _, err := u.classifier.Classify(ctx, userID, app.EmailSubject, app.EmailFrom, app.EmailBody)
	return cls, err
}

// ReprocessOne re-runs classification for a single stored application and
// persists the merge immediately. Unlike a batch run it does not take the
// reprocess lock.
func (u *reprocessUsecase) ReprocessOne(ctx context.Context, userID, applicationID string) (*appdomain.Application, error) {
	app, err := u.appRepo.FindByID(userID, applicationID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, appusecase.ErrNotFound
	}

	cls, err := u.classifier.Reclassify(ctx, userID, app.EmailSubject, app.EmailFrom, app.EmailBody)
	if err != nil {
		return nil, err
	}
	if applyReclassification(app, cls) {
		if err := u.appRepo.Save(app); err != nil {
			return nil, err
		}
		log.Printf("[Reprocess] Application %s reclassified as %s", app.ID, app.Category)
	}
	return app, nil
}

// applyReclassification merges a fresh classification into the stored
// application. Existing values survive unless the new run produced a
// non-empty replacement. Returns whether anything changed.
func applyReclassification(app *appdomain.Application, cls *ai.Classification) bool {
	changed := false

	setStr := func(dst *string, val string) {
		if val != "" && val != *dst {
			*dst = val
			changed = true
		}
	}

	setStr(&app.Category, cls.Category)
	setStr(&app.Subcategory, cls.Subcategory)
	if cls.CompanyName != "" && cls.CompanyName != "Unknown" {
		setStr(&app.CompanyName, cls.CompanyName)
	}
	setStr(&app.JobTitle, cls.JobTitle)
	setStr(&app.Position, cls.JobTitle)
	setStr(&app.PositionLevel, cls.PositionLevel)
	setStr(&app.Location, cls.Location)
	setStr(&app.ClassificationReasoning, cls.Reasoning)

	if app.Confidence == nil || *app.Confidence != cls.Confidence {
		confidence := cls.Confidence
		app.Confidence = &confidence
		changed = true
	}

	stage := assignStage(cls.Category, app.EmailSubject, app.EmailBody)
	if stage != app.ApplicationStage {
		app.ApplicationStage = stage
		app.Status = appdomain.StatusFromStage(stage)
		if app.ReceivedDate != nil {
			app.TouchStageTimestamp(stage, *app.ReceivedDate)
		} else {
			app.TouchStageTimestamp(stage, time.Now())
		}
		changed = true
	}

	needsReview := cls.NeedsReview()
	if needsReview != app.NeedsReview {
		app.NeedsReview = needsReview
		changed = true
	}

	if changed {
		app.ProcessedBy = cls.ClassifiedBy + "-reprocess"
	}
	return changed
}

func (u *reprocessUsecase) publish(state *syncdomain.ReprocessState, status, message string) {
	state.Status = status
	state.Message = message
	if err := u.stateRepo.Update(state); err != nil {
		log.Printf("[Reprocess] State update failed: %v", err)
	}
	if status == syncdomain.StatusSyncing {
		u.notifier.SendToUser(state.UserID, "reprocess_progress", state)
	}
}

func (u *reprocessUsecase) fail(state *syncdomain.ReprocessState, cause error) {
	log.Printf("[Reprocess] Failed for user=%s: %v", state.UserID, cause)
	state.Error = cause.Error()
	u.publish(state, syncdomain.StatusError, "Reprocess failed")
	u.notifier.SendToUser(state.UserID, "reprocess_error", state)
}
