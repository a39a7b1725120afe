package enums

import "fmt"

// SettlementTrigger identifies which entry point delivered a payment
// confirmation into the settlement engine.
type SettlementTrigger string

const (
	TriggerClientVerify  SettlementTrigger = "client_verify"
	TriggerWebhook       SettlementTrigger = "webhook"
	TriggerExistingOrder SettlementTrigger = "existing_order"
	TriggerCOD           SettlementTrigger = "cod"
)

var validSettlementTriggers = []SettlementTrigger{
	TriggerClientVerify,
	TriggerWebhook,
	TriggerExistingOrder,
	TriggerCOD,
}

// String implements fmt.Stringer.
func (t SettlementTrigger) String() string {
	return string(t)
}

// IsValid reports whether the value is a known SettlementTrigger.
func (t SettlementTrigger) IsValid() bool {
	for _, candidate := range validSettlementTriggers {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseSettlementTrigger converts raw input into a SettlementTrigger.
func ParseSettlementTrigger(value string) (SettlementTrigger, error) {
	for _, candidate := range validSettlementTriggers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid settlement trigger %q", value)
}
