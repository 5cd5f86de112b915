package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	appdomain "jobtrack-backend/internal/application/domain"
	apprepo "jobtrack-backend/internal/application/repository"
	authdomain "jobtrack-backend/internal/auth/domain"
	emaildomain "jobtrack-backend/internal/email/domain"
	syncdomain "jobtrack-backend/internal/sync/domain"
	"jobtrack-backend/pkg/ai"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*authdomain.User
}

func newFakeUserRepo(users ...*authdomain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*authdomain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(user *authdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindByEmail(email string) (*authdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByID(id string) (*authdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id], nil
}

func (r *fakeUserRepo) Update(user *authdomain.User) error {
	return r.Create(user)
}

func (r *fakeUserRepo) UpdateGmailTokens(user *authdomain.User) error {
	return r.Create(user)
}

type fakeAppRepo struct {
	mu   sync.Mutex
	rows map[string]*appdomain.Application // userID/gmailMessageID
	next int
}

func newFakeAppRepo() *fakeAppRepo {
	return &fakeAppRepo{rows: make(map[string]*appdomain.Application)}
}

func appKey(userID, gmailMessageID string) string {
	return userID + "/" + gmailMessageID
}

func (r *fakeAppRepo) Upsert(app *appdomain.Application) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := appKey(app.UserID, app.GmailMessageID)
	if _, ok := r.rows[key]; ok {
		return false, nil
	}
	r.next++
	app.ID = fmt.Sprintf("app-%d", r.next)
	copied := *app
	r.rows[key] = &copied
	return true, nil
}

func (r *fakeAppRepo) Save(app *appdomain.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *app
	r.rows[appKey(app.UserID, app.GmailMessageID)] = &copied
	return nil
}

func (r *fakeAppRepo) FindByID(userID, id string) (*appdomain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, app := range r.rows {
		if app.UserID == userID && app.ID == id {
			copied := *app
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeAppRepo) List(userID string, f apprepo.ListFilter) ([]appdomain.Application, int64, error) {
	apps := r.all(userID)
	return apps, int64(len(apps)), nil
}

func (r *fakeAppRepo) ListRecent(userID string, limit int) ([]appdomain.Application, error) {
	apps := r.all(userID)
	if limit > 0 && len(apps) > limit {
		apps = apps[:limit]
	}
	return apps, nil
}

func (r *fakeAppRepo) ListForReprocess(userID string, f apprepo.ReprocessFilter) ([]appdomain.Application, error) {
	var out []appdomain.Application
	for _, app := range r.all(userID) {
		if f.OnlyNeedsReview && !app.NeedsReview {
			continue
		}
		if f.ConfidenceBelow != nil && app.Confidence != nil && *app.Confidence >= *f.ConfidenceBelow {
			continue
		}
		out = append(out, app)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (r *fakeAppRepo) Delete(userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, app := range r.rows {
		if app.UserID == userID && app.ID == id {
			delete(r.rows, key)
			return nil
		}
	}
	return nil
}

func (r *fakeAppRepo) Count(userID string) (int64, error) {
	return int64(len(r.all(userID))), nil
}

func (r *fakeAppRepo) CountByCategory(userID string) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, app := range r.all(userID) {
		out[app.Category]++
	}
	return out, nil
}

func (r *fakeAppRepo) CountByStages(userID string, stages []string) (int64, error) {
	var n int64
	for _, app := range r.all(userID) {
		for _, s := range stages {
			if app.ApplicationStage == s {
				n++
				break
			}
		}
	}
	return n, nil
}

func (r *fakeAppRepo) GroupCount(userID, groupBy string, stages []string) ([]apprepo.NameCount, error) {
	return nil, nil
}

func (r *fakeAppRepo) EventPairs(userID, event string) ([]apprepo.EventPair, error) {
	return nil, nil
}

func (r *fakeAppRepo) all(userID string) []appdomain.Application {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []appdomain.Application
	for _, app := range r.rows {
		if app.UserID == userID {
			out = append(out, *app)
		}
	}
	return out
}

type fakeLogRepo struct {
	mu          sync.Mutex
	createCalls int
	entries     map[string]*appdomain.EmailLog
}

func newFakeLogRepo(seen ...string) *fakeLogRepo {
	r := &fakeLogRepo{entries: make(map[string]*appdomain.EmailLog)}
	for _, key := range seen {
		r.entries[key] = &appdomain.EmailLog{}
	}
	return r
}

func (r *fakeLogRepo) Exists(userID, gmailMessageID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[appKey(userID, gmailMessageID)]
	return ok, nil
}

func (r *fakeLogRepo) Create(entry *appdomain.EmailLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	r.entries[appKey(entry.UserID, entry.GmailMessageID)] = entry
	return nil
}

func (r *fakeLogRepo) createCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createCalls
}

func (r *fakeLogRepo) classification(userID, gmailMessageID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[appKey(userID, gmailMessageID)]; ok {
		return entry.Classification
	}
	return ""
}

type fakeSyncStateRepo struct {
	mu    sync.Mutex
	state *syncdomain.SyncState
}

func (r *fakeSyncStateRepo) Get(userID string) (*syncdomain.SyncState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == nil {
		return nil, nil
	}
	copied := *r.state
	return &copied, nil
}

func (r *fakeSyncStateRepo) TryAcquire(userID, message string) (*syncdomain.SyncState, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == nil {
		r.state = &syncdomain.SyncState{UserID: userID}
	}
	if r.state.Status == syncdomain.StatusSyncing {
		return nil, false, nil
	}
	r.state.Status = syncdomain.StatusSyncing
	r.state.Message = message
	r.state.Error = ""
	r.state.Processed, r.state.Total, r.state.Created, r.state.Skipped, r.state.Errors = 0, 0, 0, 0, 0
	copied := *r.state
	return &copied, true, nil
}

func (r *fakeSyncStateRepo) Update(state *syncdomain.SyncState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *state
	r.state = &copied
	return nil
}

type fakeReprocessStateRepo struct {
	mu    sync.Mutex
	state *syncdomain.ReprocessState
}

func (r *fakeReprocessStateRepo) Get(userID string) (*syncdomain.ReprocessState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == nil {
		return nil, nil
	}
	copied := *r.state
	return &copied, nil
}

func (r *fakeReprocessStateRepo) TryAcquire(userID, message string) (*syncdomain.ReprocessState, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == nil {
		r.state = &syncdomain.ReprocessState{UserID: userID}
	}
	if r.state.Status == syncdomain.StatusSyncing {
		return nil, false, nil
	}
	r.state.Status = syncdomain.StatusSyncing
	r.state.Message = message
	r.state.Error = ""
	r.state.Processed, r.state.Total, r.state.Updated, r.state.Unchanged, r.state.Errors = 0, 0, 0, 0, 0
	copied := *r.state
	return &copied, true, nil
}

func (r *fakeReprocessStateRepo) Update(state *syncdomain.ReprocessState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *state
	r.state = &copied
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *fakeNotifier) SendToUser(userID, eventType string, payload interface{}) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, eventType)
	return 1
}

func (n *fakeNotifier) has(eventType string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e == eventType {
			return true
		}
	}
	return false
}

type fakeSession struct {
	fullIDs    []string
	historyIDs []string
	historyErr error
	newCursor  string
	profileID  string
	messages   map[string]*emaildomain.Email

	mu           sync.Mutex
	fullCalls    int
	historyCalls int
}

func (s *fakeSession) ListFullSyncIDs(ctx context.Context, after time.Time) ([]string, error) {
	s.mu.Lock()
	s.fullCalls++
	s.mu.Unlock()
	return s.fullIDs, nil
}

func (s *fakeSession) ListHistoryIDs(ctx context.Context, cursor string) ([]string, string, error) {
	s.mu.Lock()
	s.historyCalls++
	s.mu.Unlock()
	if s.historyErr != nil {
		return nil, "", s.historyErr
	}
	return s.historyIDs, s.newCursor, nil
}

func (s *fakeSession) CurrentHistoryID(ctx context.Context) (string, error) {
	return s.profileID, nil
}

func (s *fakeSession) GetMessage(ctx context.Context, id string) (*emaildomain.Email, error) {
	if email, ok := s.messages[id]; ok {
		return email, nil
	}
	return nil, fmt.Errorf("message %s not found", id)
}

func (s *fakeSession) RegisterWatch(ctx context.Context, topicName string) (time.Time, error) {
	return time.Now().Add(7 * 24 * time.Hour), nil
}

type fakeSource struct {
	session *fakeSession
	openErr error
}

func (s *fakeSource) Open(ctx context.Context, user *authdomain.User, onTokenRefresh emaildomain.TokenUpdateFunc) (MailSession, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	return s.session, nil
}

type fakeClassifier struct {
	mu     sync.Mutex
	calls  int
	result *ai.Classification
	err    error
}

func (c *fakeClassifier) Classify(ctx context.Context, userID, subject, sender, body string) (*ai.Classification, bool, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.err != nil {
		return nil, false, c.err
	}
	copied := *c.result
	return &copied, false, nil
}

func (c *fakeClassifier) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func testEmail(id, subject, from, body string) *emaildomain.Email {
	return &emaildomain.Email{
		ID:         id,
		Subject:    subject,
		From:       from,
		Body:       body,
		ReceivedAt: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}
