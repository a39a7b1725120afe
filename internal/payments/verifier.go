package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	pkgerrors "github.com/threadline-store/threadline-backend/pkg/errors"
)

// Verifier checks gateway signatures. The client-side verification hash
// covers "external_order_id|external_payment_id" signed with the key secret;
// webhook deliveries are signed over the raw body with a separate secret.
type Verifier struct {
	keySecret     string
	webhookSecret string
}

// NewVerifier builds a verifier from the configured gateway secrets.
func NewVerifier(keySecret, webhookSecret string) *Verifier {
	return &Verifier{keySecret: keySecret, webhookSecret: webhookSecret}
}

// VerifyPaymentSignature validates the hash the client echoes back after a
// successful gateway checkout.
func (v *Verifier) VerifyPaymentSignature(externalOrderID, externalPaymentID, signature string) error {
	if externalOrderID == "" || externalPaymentID == "" || signature == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id, payment id and signature are required")
	}
	expected := signHMAC(v.keySecret, externalOrderID+"|"+externalPaymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "payment signature mismatch")
	}
	return nil
}

// VerifyWebhookSignature validates the signature header against the raw,
// unparsed request body. The body must be the exact bytes received.
func (v *Verifier) VerifyWebhookSignature(body []byte, signature string) error {
	if signature == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature header missing")
	}
	expected := signHMAC(v.webhookSecret, string(body))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature mismatch")
	}
	return nil
}

func signHMAC(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignPayment produces the hash a gateway client would send. Exported for
// tests and local tooling.
func SignPayment(keySecret, externalOrderID, externalPaymentID string) string {
	return signHMAC(keySecret, externalOrderID+"|"+externalPaymentID)
}

// SignWebhook produces the signature for a raw webhook body.
func SignWebhook(webhookSecret string, body []byte) string {
	return signHMAC(webhookSecret, string(body))
}
