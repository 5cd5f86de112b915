package usecase

import (
	"errors"
	"testing"

	appdomain "jobtrack-backend/internal/application/domain"
	appdto "jobtrack-backend/internal/application/dto"
	"jobtrack-backend/internal/application/repository"
)

// stubAppRepo returns canned values per method; tests override only what
// they exercise.
type stubAppRepo struct {
	apps        map[string]*appdomain.Application
	saved       *appdomain.Application
	deleted     string
	count       int64
	byCategory  map[string]int64
	stageCounts map[string]int64
	groups      map[bool][]repository.NameCount // keyed by "filtered by stages"
	pairs       []repository.EventPair
	recent      []appdomain.Application
}

func (s *stubAppRepo) Upsert(app *appdomain.Application) (bool, error) { return false, nil }

func (s *stubAppRepo) Save(app *appdomain.Application) error {
	s.saved = app
	return nil
}

func (s *stubAppRepo) FindByID(userID, id string) (*appdomain.Application, error) {
	return s.apps[id], nil
}

func (s *stubAppRepo) List(userID string, f repository.ListFilter) ([]appdomain.Application, int64, error) {
	return s.recent, int64(len(s.recent)), nil
}

func (s *stubAppRepo) ListRecent(userID string, limit int) ([]appdomain.Application, error) {
	if limit < len(s.recent) {
		return s.recent[:limit], nil
	}
	return s.recent, nil
}

func (s *stubAppRepo) ListForReprocess(userID string, f repository.ReprocessFilter) ([]appdomain.Application, error) {
	return nil, nil
}

func (s *stubAppRepo) Delete(userID, id string) error {
	s.deleted = id
	return nil
}

func (s *stubAppRepo) Count(userID string) (int64, error) { return s.count, nil }

func (s *stubAppRepo) CountByCategory(userID string) (map[string]int64, error) {
	return s.byCategory, nil
}

func (s *stubAppRepo) CountByStages(userID string, stages []string) (int64, error) {
	var n int64
	for _, stage := range stages {
		n += s.stageCounts[stage]
	}
	return n, nil
}

func (s *stubAppRepo) GroupCount(userID, groupBy string, stages []string) ([]repository.NameCount, error) {
	return s.groups[stages != nil], nil
}

func (s *stubAppRepo) EventPairs(userID, event string) ([]repository.EventPair, error) {
	return s.pairs, nil
}

func TestStatsPendingClamped(t *testing.T) {
	repo := &stubAppRepo{
		count: 3,
		byCategory: map[string]int64{
			appdomain.CategoryRejection:        2,
			appdomain.CategoryInterviewRequest: 2,
		},
	}
	uc := NewApplicationUsecase(repo, nil)

	stats, err := uc.Stats("u1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Pending != 0 {
		t.Errorf("pending = %d, want clamped to 0", stats.Pending)
	}
	if stats.Rejections != 2 || stats.Interviews != 2 {
		t.Errorf("rejections/interviews = %d/%d", stats.Rejections, stats.Interviews)
	}
}

func TestStatsPending(t *testing.T) {
	repo := &stubAppRepo{
		count: 10,
		byCategory: map[string]int64{
			appdomain.CategoryRejection: 3,
			appdomain.CategoryOffer:     1,
		},
	}
	uc := NewApplicationUsecase(repo, nil)

	stats, err := uc.Stats("u1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Pending != 6 {
		t.Errorf("pending = %d, want 6", stats.Pending)
	}
}

func TestGetUnknownApplication(t *testing.T) {
	uc := NewApplicationUsecase(&stubAppRepo{apps: map[string]*appdomain.Application{}}, nil)

	_, err := uc.Get("u1", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateStageRederivesStatus(t *testing.T) {
	repo := &stubAppRepo{apps: map[string]*appdomain.Application{
		"a1": {ID: "a1", UserID: "u1", ApplicationStage: appdomain.StageApplied, Status: appdomain.StatusApplied},
	}}
	uc := NewApplicationUsecase(repo, nil)

	stage := appdomain.StageOffer
	app, err := uc.Update("u1", "a1", &appdto.UpdateRequest{ApplicationStage: &stage})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if app.Status != appdomain.StatusOffer {
		t.Errorf("status = %q, want derived OFFER", app.Status)
	}
	if repo.saved == nil {
		t.Error("update not persisted")
	}
}

func TestUpdateExplicitStatusWins(t *testing.T) {
	repo := &stubAppRepo{apps: map[string]*appdomain.Application{
		"a1": {ID: "a1", UserID: "u1", ApplicationStage: appdomain.StageApplied, Status: appdomain.StatusApplied},
	}}
	uc := NewApplicationUsecase(repo, nil)

	stage := appdomain.StageOffer
	status := appdomain.StatusRejected
	app, err := uc.Update("u1", "a1", &appdto.UpdateRequest{ApplicationStage: &stage, Status: &status})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if app.Status != appdomain.StatusRejected {
		t.Errorf("status = %q, explicit status must win", app.Status)
	}
}
