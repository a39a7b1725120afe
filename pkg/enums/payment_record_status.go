package enums

import "fmt"

// PaymentRecordStatus tracks the state of one payment attempt in the ledger.
type PaymentRecordStatus string

const (
	PaymentRecordStatusCreated   PaymentRecordStatus = "created"
	PaymentRecordStatusPending   PaymentRecordStatus = "pending"
	PaymentRecordStatusPaid      PaymentRecordStatus = "paid"
	PaymentRecordStatusFailed    PaymentRecordStatus = "failed"
	PaymentRecordStatusRefunded  PaymentRecordStatus = "refunded"
	PaymentRecordStatusCancelled PaymentRecordStatus = "cancelled"
)

var validPaymentRecordStatuses = []PaymentRecordStatus{
	PaymentRecordStatusCreated,
	PaymentRecordStatusPending,
	PaymentRecordStatusPaid,
	PaymentRecordStatusFailed,
	PaymentRecordStatusRefunded,
	PaymentRecordStatusCancelled,
}

// String implements fmt.Stringer.
func (p PaymentRecordStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentRecordStatus.
func (p PaymentRecordStatus) IsValid() bool {
	for _, candidate := range validPaymentRecordStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentRecordStatus converts raw input into a PaymentRecordStatus.
func ParsePaymentRecordStatus(value string) (PaymentRecordStatus, error) {
	for _, candidate := range validPaymentRecordStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment record status %q", value)
}
