package usecase

import (
	"context"
	"time"

	authdomain "jobtrack-backend/internal/auth/domain"
	emaildomain "jobtrack-backend/internal/email/domain"
	"jobtrack-backend/pkg/config"
	gmailpkg "jobtrack-backend/pkg/gmail"

	gmailapi "google.golang.org/api/gmail/v1"
)

// MailSession is one authenticated mailbox connection for the duration of a
// sync run.
type MailSession interface {
	// ListFullSyncIDs returns candidate message ids from the date-bounded
	// job-search queries, deduplicated across queries. A zero after time
	// means the configured default lookback window.
	ListFullSyncIDs(ctx context.Context, after time.Time) ([]string, error)
	// ListHistoryIDs returns ids added since the cursor plus the new cursor.
	// Returns gmail.ErrHistoryExpired when the cursor is too old.
	ListHistoryIDs(ctx context.Context, cursor string) ([]string, string, error)
	// CurrentHistoryID returns the mailbox's present cursor position.
	CurrentHistoryID(ctx context.Context) (string, error)
	GetMessage(ctx context.Context, id string) (*emaildomain.Email, error)
	// RegisterWatch subscribes the mailbox to push notifications.
	RegisterWatch(ctx context.Context, topicName string) (time.Time, error)
}

// MessageSource opens mail sessions from stored user credentials.
type MessageSource interface {
	Open(ctx context.Context, user *authdomain.User, onTokenRefresh emaildomain.TokenUpdateFunc) (MailSession, error)
}

type gmailSource struct {
	svc *gmailpkg.Service
	cfg *config.Config
}

// NewGmailSource adapts the Gmail service to the MessageSource interface
// with the configured paging and lookback limits.
func NewGmailSource(svc *gmailpkg.Service, cfg *config.Config) MessageSource {
	return &gmailSource{svc: svc, cfg: cfg}
}

func (g *gmailSource) Open(ctx context.Context, user *authdomain.User, onTokenRefresh emaildomain.TokenUpdateFunc) (MailSession, error) {
	api, err := g.svc.GetGmailService(ctx, user.GmailAccessToken, user.GmailRefreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}
	return &gmailSession{svc: g.svc, api: api, cfg: g.cfg}, nil
}

type gmailSession struct {
	svc *gmailpkg.Service
	api *gmailapi.Service
	cfg *config.Config
}

func (s *gmailSession) ListFullSyncIDs(ctx context.Context, after time.Time) ([]string, error) {
	if after.IsZero() {
		after = time.Now().AddDate(0, 0, -s.cfg.GmailFullSyncDaysBack)
	}
	seen := make(map[string]bool)
	var ids []string
	for _, query := range gmailpkg.JobSearchQueries(after) {
		queryIDs, err := s.svc.ListMessageIDs(ctx, s.api, query, s.cfg.GmailSyncPageSize, s.cfg.GmailFullSyncMaxPerQuery)
		if err != nil {
			return nil, err
		}
		for _, id := range queryIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func (s *gmailSession) ListHistoryIDs(ctx context.Context, cursor string) ([]string, string, error) {
	return s.svc.ListHistoryMessageIDs(ctx, s.api, cursor, s.cfg.GmailHistoryMaxResults)
}

func (s *gmailSession) CurrentHistoryID(ctx context.Context) (string, error) {
	return s.svc.GetProfileHistoryID(ctx, s.api)
}

func (s *gmailSession) GetMessage(ctx context.Context, id string) (*emaildomain.Email, error) {
	return s.svc.GetMessage(ctx, s.api, id)
}

func (s *gmailSession) RegisterWatch(ctx context.Context, topicName string) (time.Time, error) {
	return s.svc.Watch(ctx, s.api, topicName)
}
