package enums

import "fmt"

// SubmissionStatus tracks the approval lifecycle of a payment submission.
type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusApproved SubmissionStatus = "approved"
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

var validSubmissionStatuses = []SubmissionStatus{
	SubmissionStatusPending,
	SubmissionStatusApproved,
	SubmissionStatusRejected,
}

// IsValid reports whether the value matches the canonical status enum.
func (s SubmissionStatus) IsValid() bool {
	for _, candidate := range validSubmissionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status permits no further transition.
func (s SubmissionStatus) IsTerminal() bool {
	return s == SubmissionStatusApproved || s == SubmissionStatusRejected
}

// ParseSubmissionStatus converts the raw string to SubmissionStatus.
func ParseSubmissionStatus(value string) (SubmissionStatus, error) {
	for _, candidate := range validSubmissionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid submission status %q", value)
}
