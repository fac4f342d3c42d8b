package clerk

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Webhook event types delivered by the identity provider.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

var (
	// ErrInvalidWebhookSignature means the payload was not signed by the
	// provider and must be discarded without side effects.
	ErrInvalidWebhookSignature = errors.New("webhook signature verification failed")
	// ErrWebhookTimestampSkew means the timestamp is outside tolerance.
	ErrWebhookTimestampSkew = errors.New("webhook timestamp outside tolerance")
)

// WebhookTolerance is the maximum accepted clock skew for webhook
// timestamps, matching the provider's delivery retry window.
const WebhookTolerance = 5 * time.Minute

// WebhookEvent is a provider lifecycle notification. Delivery is
// at-least-once and may be out of order, so handlers must be idempotent.
type WebhookEvent struct {
	Type string          `json:"type"`
	Data WebhookUserData `json:"data"`
}

// WebhookUserData is the user payload carried by lifecycle events.
type WebhookUserData struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Username       string `json:"username"`
	ImageURL       string `json:"image_url"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
	PublicMetadata struct {
		Role string `json:"role"`
	} `json:"public_metadata"`
}

// Name assembles a display name the same way the profile fetch does.
func (d *WebhookUserData) Name() string {
	name := strings.TrimSpace(d.FirstName + " " + d.LastName)
	if name == "" {
		name = d.Username
	}
	if name == "" {
		name = "User"
	}
	return name
}

// Email returns the primary email address, if any.
func (d *WebhookUserData) Email() string {
	if len(d.EmailAddresses) > 0 {
		return d.EmailAddresses[0].EmailAddress
	}
	return ""
}

// WebhookVerifier checks provider webhook signatures (svix scheme: HMAC
// SHA-256 over "id.timestamp.body" with the base64 portion of the
// whsec_ secret, base64-encoded result).
type WebhookVerifier struct {
	key []byte
	now func() time.Time
}

// NewWebhookVerifier parses a whsec_-prefixed signing secret.
func NewWebhookVerifier(secret string) (*WebhookVerifier, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(secret), "whsec_")
	if raw == "" {
		return nil, errors.New("webhook signing secret is empty")
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("webhook signing secret is not valid base64: %w", err)
	}
	return &WebhookVerifier{key: key, now: time.Now}, nil
}

// Verify checks the signature headers against the raw body and decodes
// the event. msgID, timestamp and signatures come from the svix-id,
// svix-timestamp and svix-signature headers.
func (v *WebhookVerifier) Verify(msgID, timestamp, signatures string, body []byte) (*WebhookEvent, error) {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return nil, ErrInvalidWebhookSignature
	}
	sent := time.Unix(ts, 0)
	if skew := v.now().Sub(sent); skew > WebhookTolerance || skew < -WebhookTolerance {
		return nil, ErrWebhookTimestampSkew
	}

	mac := hmac.New(sha256.New, v.key)
	fmt.Fprintf(mac, "%s.%s.", msgID, timestamp)
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	// Header carries space-separated "v1,<sig>" entries; any match passes.
	valid := false
	for _, entry := range strings.Fields(signatures) {
		parts := strings.SplitN(entry, ",", 2)
		if len(parts) != 2 || parts[0] != "v1" {
			continue
		}
		if hmac.Equal([]byte(parts[1]), []byte(expected)) {
			valid = true
			break
		}
	}
	if !valid {
		return nil, ErrInvalidWebhookSignature
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("failed to decode webhook payload: %w", err)
	}
	return &event, nil
}
