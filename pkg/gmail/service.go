package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	emaildomain "jobtrack-backend/internal/email/domain"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

var (
	// ErrHistoryExpired means the stored cursor is too old and Gmail no
	// longer retains history for it. The caller must fall back to a full
	// sync.
	ErrHistoryExpired = errors.New("gmail history cursor expired")
	// ErrRateLimited means Gmail kept returning 403/429 through all backoff
	// attempts.
	ErrRateLimited = errors.New("gmail rate limit exceeded")
)

// TokenUpdateFunc is a callback function that handles token updates
type TokenUpdateFunc = emaildomain.TokenUpdateFunc

// Service wraps the Gmail API for the sync pipeline: OAuth client
// construction with refresh detection, message listing (search and history)
// and full message fetch.
type Service struct {
	clientID     string
	clientSecret string
	cb           *gobreaker.CircuitBreaker
}

type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			log.Printf("[Gmail] Failed to persist refreshed token: %v", err)
		}
	}
	return t, nil
}

func NewService(clientID, clientSecret string) *Service {
	cbSettings := gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("[CircuitBreaker] %s: state changed from %s to %s", name, from.String(), to.String())
		},
	}

	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
		cb:           gobreaker.NewCircuitBreaker(cbSettings),
	}
}

// GetGmailService creates a Gmail client from the user's stored tokens. The
// token source is wrapped so refreshed access tokens are persisted via the
// callback.
func (s *Service) GetGmailService(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}

	// Only force refresh if we have a refresh token
	if refreshToken != "" {
		token.Expiry = time.Now()
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	wrappedSource := &notifyTokenSource{
		src:      config.TokenSource(ctx, token),
		current:  token,
		callback: onTokenRefresh,
	}

	client := oauth2.NewClient(ctx, wrappedSource)

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %v", err)
	}
	return srv, nil
}

// executeWithBreaker wraps an API call with circuit breaker protection so a
// Gmail outage fails fast instead of hammering the API. Client errors
// (4xx except 429) do not trip the breaker.
func (s *Service) executeWithBreaker(operation string, fn func() error) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		if err := fn(); err != nil {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) {
				switch apiErr.Code {
				case 500, 502, 503, 429:
					return nil, err
				case 400, 401, 403, 404:
					return nil, &nonCircuitError{err: err}
				}
			}
			return nil, err
		}
		return nil, nil
	})

	var nce *nonCircuitError
	if errors.As(err, &nce) {
		return nce.err
	}
	if err != nil {
		log.Printf("[Gmail] %s failed: state=%s, err=%v", operation, s.cb.State().String(), err)
	}
	return err
}

// nonCircuitError wraps errors that should not trip the circuit breaker.
type nonCircuitError struct {
	err error
}

func (e *nonCircuitError) Error() string {
	return e.err.Error()
}

const maxBackoffRetries = 4

// withBackoff retries fn on 403/429 with exponential backoff, returning
// ErrRateLimited once attempts are exhausted.
func withBackoff(ctx context.Context, fn func() error) error {
	delay := time.Second
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var apiErr *googleapi.Error
		if !errors.As(err, &apiErr) || (apiErr.Code != 403 && apiErr.Code != 429) {
			return err
		}
		if attempt >= maxBackoffRetries {
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		}

		log.Printf("[Gmail] Rate limited (attempt %d), backing off %s", attempt+1, delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// JobSearchQueries returns the Gmail search queries used by a full sync:
// subject keywords and typical recruiting sender prefixes, both bounded to
// the after date.
func JobSearchQueries(after time.Time) []string {
	bound := after.Format("2006/01/02")
	return []string{
		fmt.Sprintf("after:%s subject:(application OR interview OR assessment OR position)", bound),
		fmt.Sprintf("after:%s from:(noreply OR no-reply OR careers OR recruiting OR talent)", bound),
	}
}

// ListMessageIDs pages through Users.Messages.List for the query and returns
// up to maxTotal message ids.
func (s *Service) ListMessageIDs(ctx context.Context, srv *gmail.Service, query string, pageSize, maxTotal int) ([]string, error) {
	var ids []string
	pageToken := ""

	for {
		var resp *gmail.ListMessagesResponse
		call := func() error {
			return withBackoff(ctx, func() error {
				req := srv.Users.Messages.List("me").Q(query).MaxResults(int64(pageSize)).Context(ctx)
				if pageToken != "" {
					req = req.PageToken(pageToken)
				}
				var err error
				resp, err = req.Do()
				return err
			})
		}
		if err := s.executeWithBreaker("messages.list", call); err != nil {
			return nil, err
		}

		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
			if len(ids) >= maxTotal {
				return ids, nil
			}
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			return ids, nil
		}
	}
}

// ListHistoryMessageIDs returns ids of messages added since the given
// cursor, plus the new cursor to store. A 404 means Gmail dropped the
// history window and is surfaced as ErrHistoryExpired.
func (s *Service) ListHistoryMessageIDs(ctx context.Context, srv *gmail.Service, startHistoryID string, maxResults int) ([]string, string, error) {
	start, err := strconv.ParseUint(startHistoryID, 10, 64)
	if err != nil {
		return nil, "", fmt.Errorf("%w: bad cursor %q", ErrHistoryExpired, startHistoryID)
	}

	var ids []string
	newCursor := startHistoryID
	pageToken := ""

	for {
		var resp *gmail.ListHistoryResponse
		call := func() error {
			return withBackoff(ctx, func() error {
				req := srv.Users.History.List("me").
					StartHistoryId(start).
					HistoryTypes("messageAdded").
					MaxResults(int64(maxResults)).
					Context(ctx)
				if pageToken != "" {
					req = req.PageToken(pageToken)
				}
				var err error
				resp, err = req.Do()
				return err
			})
		}
		if err := s.executeWithBreaker("history.list", call); err != nil {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) && apiErr.Code == 404 {
				return nil, "", ErrHistoryExpired
			}
			return nil, "", err
		}

		for _, h := range resp.History {
			for _, added := range h.MessagesAdded {
				if added.Message != nil {
					ids = append(ids, added.Message.Id)
				}
			}
		}
		if resp.HistoryId > 0 {
			newCursor = strconv.FormatUint(resp.HistoryId, 10)
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			return ids, newCursor, nil
		}
	}
}

// GetProfileHistoryID returns the mailbox's current history id, stored as
// the cursor after a full sync.
func (s *Service) GetProfileHistoryID(ctx context.Context, srv *gmail.Service) (string, error) {
	var profile *gmail.Profile
	call := func() error {
		return withBackoff(ctx, func() error {
			var err error
			profile, err = srv.Users.GetProfile("me").Context(ctx).Do()
			return err
		})
	}
	if err := s.executeWithBreaker("getProfile", call); err != nil {
		return "", err
	}
	return strconv.FormatUint(profile.HistoryId, 10), nil
}

// GetMessage fetches a full message and converts it to the domain email.
func (s *Service) GetMessage(ctx context.Context, srv *gmail.Service, messageID string) (*emaildomain.Email, error) {
	var msg *gmail.Message
	call := func() error {
		return withBackoff(ctx, func() error {
			var err error
			msg, err = srv.Users.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
			return err
		})
	}
	if err := s.executeWithBreaker("messages.get", call); err != nil {
		return nil, err
	}
	return convertGmailMessage(msg), nil
}

// Watch registers the mailbox for push notifications to the pub/sub topic.
// Gmail expires watches after about 7 days; the expiry is returned so the
// caller can schedule a renewal.
func (s *Service) Watch(ctx context.Context, srv *gmail.Service, topicName string) (time.Time, error) {
	var resp *gmail.WatchResponse
	call := func() error {
		return withBackoff(ctx, func() error {
			var err error
			resp, err = srv.Users.Watch("me", &gmail.WatchRequest{
				TopicName: topicName,
				LabelIds:  []string{"INBOX"},
			}).Context(ctx).Do()
			return err
		})
	}
	if err := s.executeWithBreaker("watch", call); err != nil {
		return time.Time{}, err
	}
	return time.Unix(resp.Expiration/1000, 0), nil
}

// StopWatch cancels push notifications for the mailbox.
func (s *Service) StopWatch(ctx context.Context, srv *gmail.Service) error {
	return s.executeWithBreaker("stop", func() error {
		return srv.Users.Stop("me").Context(ctx).Do()
	})
}

func convertGmailMessage(msg *gmail.Message) *emaildomain.Email {
	body, isHTML := getEmailBody(msg.Payload)
	if isHTML {
		body = stripHTML(body)
	}

	return &emaildomain.Email{
		ID:         msg.Id,
		Subject:    getHeader(msg.Payload.Headers, "Subject"),
		From:       getHeader(msg.Payload.Headers, "From"),
		Body:       body,
		ReceivedAt: time.Unix(msg.InternalDate/1000, 0),
	}
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if header.Name == name {
			return header.Value
		}
	}
	return ""
}

func getEmailBody(payload *gmail.MessagePart) (string, bool) {
	if payload == nil {
		return "", false
	}

	// If the payload itself is the body
	if payload.Body != nil && payload.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(payload.Body.Data)
		if err == nil {
			return string(data), payload.MimeType == "text/html"
		}
	}

	var htmlBody string
	var plainBody string

	var findBody func(parts []*gmail.MessagePart)
	findBody = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part.MimeType == "text/plain" {
				if part.Body != nil && part.Body.Data != "" {
					data, err := base64.URLEncoding.DecodeString(part.Body.Data)
					if err == nil && plainBody == "" {
						plainBody = string(data)
					}
				}
			} else if part.MimeType == "text/html" {
				if part.Body != nil && part.Body.Data != "" {
					data, err := base64.URLEncoding.DecodeString(part.Body.Data)
					if err == nil && htmlBody == "" {
						htmlBody = string(data)
					}
				}
			}
			if len(part.Parts) > 0 {
				findBody(part.Parts)
			}
		}
	}
	findBody(payload.Parts)

	// Classification works on text, so plain parts win over HTML.
	if plainBody != "" {
		return plainBody, false
	}
	return htmlBody, true
}

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

func stripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&quot;", "\"")
	return strings.Join(strings.Fields(s), " ")
}
