package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignPayment computes the hex HMAC-SHA256 the gateway attaches to a
// payment confirmation: the key secret over "orderID|paymentID".
func SignPayment(orderID, paymentID, keySecret string) string {
	mac := hmac.New(sha256.New, []byte(keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPaymentSignature checks a client-submitted confirmation signature
// against the recomputed one. Comparison is constant-time.
func VerifyPaymentSignature(orderID, paymentID, signature, keySecret string) bool {
	expected := SignPayment(orderID, paymentID, keySecret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifySignature checks a confirmation against this client's key secret.
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifyPaymentSignature(orderID, paymentID, signature, c.keySecret)
}
