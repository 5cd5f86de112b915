package domain

import (
	"time"

	"golang.org/x/oauth2"
)

// TokenUpdateFunc is called when the Gmail token source refreshes a token,
// so the new token can be persisted for the user.
type TokenUpdateFunc func(token *oauth2.Token) error

// Email is a fetched mail message reduced to the parts the classifier needs.
type Email struct {
	ID         string    `json:"id"`
	Subject    string    `json:"subject"`
	From       string    `json:"from"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}
