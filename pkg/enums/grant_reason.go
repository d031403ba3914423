package enums

import "fmt"

// GrantReason records which entitlement path allowed a delivery.
type GrantReason string

const (
	GrantReasonSubscription GrantReason = "subscription"
	GrantReasonAlreadyPaid  GrantReason = "already_paid"
	GrantReasonPayPerView   GrantReason = "pay_per_view"
	GrantReasonAdminSend    GrantReason = "admin_send"
)

var validGrantReasons = []GrantReason{
	GrantReasonSubscription,
	GrantReasonAlreadyPaid,
	GrantReasonPayPerView,
	GrantReasonAdminSend,
}

// IsValid reports whether the value matches the canonical reason enum.
func (g GrantReason) IsValid() bool {
	for _, candidate := range validGrantReasons {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGrantReason converts the raw string to GrantReason.
func ParseGrantReason(value string) (GrantReason, error) {
	for _, candidate := range validGrantReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid grant reason %q", value)
}
