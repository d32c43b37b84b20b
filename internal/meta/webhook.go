package meta

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/queue"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/telemetry"
)

const signaturePrefix = "sha256="

var ErrBadSignature = errors.New("invalid webhook signature")

// WebhookEntry is one page entry of a webhook delivery. The change and
// messaging arrays are forwarded untouched.
type WebhookEntry struct {
	ID        string          `json:"id"`
	Time      int64           `json:"time"`
	Messaging json.RawMessage `json:"messaging,omitempty"`
	Changes   json.RawMessage `json:"changes,omitempty"`
}

type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

// VerifySubscription answers the hub challenge sent when the webhook is registered.
func (s *Service) VerifySubscription(mode, token, challenge string) (string, bool) {
	if s.Cfg.WebhookVerifyToken == "" || mode != "subscribe" {
		return "", false
	}
	if !hmac.Equal([]byte(token), []byte(s.Cfg.WebhookVerifyToken)) {
		return "", false
	}
	return challenge, true
}

// ValidSignature checks X-Hub-Signature-256 against the app secret.
func (s *Service) ValidSignature(body []byte, header string) bool {
	if s.Cfg.AppSecret == "" || !strings.HasPrefix(header, signaturePrefix) {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(s.Cfg.AppSecret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// Signature returns the header value Meta would send for body.
func Signature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// ReceiveWebhook verifies a delivery and publishes it for the worker.
func (s *Service) ReceiveWebhook(ctx context.Context, body []byte, signature string) (WebhookPayload, error) {
	if !s.ValidSignature(body, signature) {
		return WebhookPayload{}, ErrBadSignature
	}
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return WebhookPayload{}, fmt.Errorf("%w: malformed webhook body", ErrInvalidInput)
	}
	if err := queue.PublishEvent(ctx, s.Events, queue.SubjectMetaWebhook, "", telemetry.RequestID(ctx), payload); err != nil {
		return WebhookPayload{}, err
	}
	telemetry.Info("meta.webhook.received", map[string]any{
		"object":  payload.Object,
		"entries": len(payload.Entry),
	})
	return payload, nil
}
