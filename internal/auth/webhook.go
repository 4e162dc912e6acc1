package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	svix "github.com/svix/svix-webhooks/go"
)

// Webhook event types sent by the auth provider
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// WebhookEvent is a user lifecycle event
type WebhookEvent struct {
	Type string      `json:"type"`
	Data WebhookUser `json:"data"`
}

// WebhookUser is the user payload of a lifecycle event
type WebhookUser struct {
	ID                    string         `json:"id"`
	FirstName             string         `json:"first_name"`
	LastName              string         `json:"last_name"`
	ImageURL              string         `json:"image_url"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	EmailAddresses        []EmailAddress `json:"email_addresses"`
}

type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// Principal converts the event payload to a Principal.
// The primary address wins; otherwise the first listed address is used.
func (u WebhookUser) Principal() Principal {
	email := ""
	for _, addr := range u.EmailAddresses {
		if addr.ID == u.PrimaryEmailAddressID {
			email = addr.EmailAddress
			break
		}
	}
	if email == "" && len(u.EmailAddresses) > 0 {
		email = u.EmailAddresses[0].EmailAddress
	}

	return Principal{
		ExternalID: u.ID,
		Email:      email,
		Name:       strings.TrimSpace(u.FirstName + " " + u.LastName),
		ImageURL:   u.ImageURL,
	}
}

// WebhookVerifier checks svix signatures on incoming lifecycle events
type WebhookVerifier struct {
	wh *svix.Webhook
}

// NewWebhookVerifier creates a verifier for a "whsec_" signing secret
func NewWebhookVerifier(secret string) (*WebhookVerifier, error) {
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook verifier: %w", err)
	}
	return &WebhookVerifier{wh: wh}, nil
}

// Verify checks the signature headers against payload and decodes the event
func (v *WebhookVerifier) Verify(payload []byte, headers http.Header) (*WebhookEvent, error) {
	if err := v.wh.Verify(payload, headers); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to decode webhook event: %w", err)
	}
	return &event, nil
}
