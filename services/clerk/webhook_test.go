package clerk

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testWebhookKey = []byte("0123456789abcdef0123456789abcdef")

func testSecret() string {
	return "whsec_" + base64.StdEncoding.EncodeToString(testWebhookKey)
}

func signPayload(msgID, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, testWebhookKey)
	fmt.Fprintf(mac, "%s.%s.", msgID, timestamp)
	mac.Write(body)
	return "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func newTestVerifier(t *testing.T) *WebhookVerifier {
	t.Helper()

	verifier, err := NewWebhookVerifier(testSecret())
	require.NoError(t, err)
	return verifier
}

func TestNewWebhookVerifierRejectsBadSecrets(t *testing.T) {
	_, err := NewWebhookVerifier("")
	assert.Error(t, err)

	_, err = NewWebhookVerifier("whsec_")
	assert.Error(t, err)

	_, err = NewWebhookVerifier("whsec_!!not-base64!!")
	assert.Error(t, err)
}

func TestVerifyAcceptsSignedEvent(t *testing.T) {
	verifier := newTestVerifier(t)

	body := []byte(`{"type":"user.created","data":{"id":"user_abc","first_name":"Ada","last_name":"Lovelace","image_url":"https://img.example.com/a.png","email_addresses":[{"email_address":"ada@example.com"}],"public_metadata":{"role":"educator"}}}`)
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signature := signPayload("msg_1", timestamp, body)

	event, err := verifier.Verify("msg_1", timestamp, signature, body)
	require.NoError(t, err)

	assert.Equal(t, EventUserCreated, event.Type)
	assert.Equal(t, "user_abc", event.Data.ID)
	assert.Equal(t, "Ada Lovelace", event.Data.Name())
	assert.Equal(t, "ada@example.com", event.Data.Email())
	assert.Equal(t, "educator", event.Data.PublicMetadata.Role)
}

func TestVerifyAcceptsAnyMatchingHeaderEntry(t *testing.T) {
	verifier := newTestVerifier(t)

	body := []byte(`{"type":"user.deleted","data":{"id":"user_abc"}}`)
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	valid := signPayload("msg_1", timestamp, body)
	header := "v1,bm90LXRoZS1zaWduYXR1cmU= " + valid

	event, err := verifier.Verify("msg_1", timestamp, header, body)
	require.NoError(t, err)
	assert.Equal(t, EventUserDeleted, event.Type)
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	verifier := newTestVerifier(t)

	body := []byte(`{"type":"user.created","data":{"id":"user_abc"}}`)
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signature := signPayload("msg_1", timestamp, body)

	tampered := []byte(`{"type":"user.created","data":{"id":"user_evil"}}`)
	_, err := verifier.Verify("msg_1", timestamp, signature, tampered)
	assert.ErrorIs(t, err, ErrInvalidWebhookSignature)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	verifier := newTestVerifier(t)

	body := []byte(`{"type":"user.created","data":{"id":"user_abc"}}`)
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	mac := hmac.New(sha256.New, []byte("some-other-key-entirely-000000"))
	fmt.Fprintf(mac, "msg_1.%s.", timestamp)
	mac.Write(body)
	forged := "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))

	_, err := verifier.Verify("msg_1", timestamp, forged, body)
	assert.ErrorIs(t, err, ErrInvalidWebhookSignature)
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	verifier := newTestVerifier(t)

	body := []byte(`{"type":"user.created","data":{"id":"user_abc"}}`)
	stale := strconv.FormatInt(time.Now().Add(-WebhookTolerance-time.Minute).Unix(), 10)
	signature := signPayload("msg_1", stale, body)

	_, err := verifier.Verify("msg_1", stale, signature, body)
	assert.ErrorIs(t, err, ErrWebhookTimestampSkew)
}

func TestWebhookUserDataNameFallbacks(t *testing.T) {
	data := WebhookUserData{FirstName: "Ada"}
	assert.Equal(t, "Ada", data.Name())

	data = WebhookUserData{Username: "ada42"}
	assert.Equal(t, "ada42", data.Name())

	data = WebhookUserData{}
	assert.Equal(t, "User", data.Name())
	assert.Empty(t, data.Email())
}
