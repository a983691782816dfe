package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// PaymentSignature returns the hex HMAC-SHA256 of "orderID|paymentID" keyed
// with the API key secret, as sent by checkout on success.
func PaymentSignature(orderID, paymentID, keySecret string) string {
	return sign([]byte(orderID+"|"+paymentID), keySecret)
}

// VerifyPaymentSignature checks a checkout callback signature.
func VerifyPaymentSignature(orderID, paymentID, signature, keySecret string) bool {
	if keySecret == "" {
		return false
	}
	return equalHex(PaymentSignature(orderID, paymentID, keySecret), signature)
}

// WebhookSignature returns the hex HMAC-SHA256 of the raw webhook body keyed
// with the webhook secret (X-Razorpay-Signature).
func WebhookSignature(body []byte, webhookSecret string) string {
	return sign(body, webhookSecret)
}

// VerifyWebhookSignature checks a webhook signature against the exact bytes received.
func VerifyWebhookSignature(body []byte, signature, webhookSecret string) bool {
	if webhookSecret == "" {
		return false
	}
	return equalHex(WebhookSignature(body, webhookSecret), signature)
}

func sign(msg []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}

// equalHex compares in constant time; an empty signature never matches.
func equalHex(expected, got string) bool {
	if got == "" {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(got))
}
