package audit

// Status represents the lifecycle status of an audit
type Status string

const (
	StatusDraft      Status = "DRAFT"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusReopened   Status = "REOPENED"
)

// IsValid checks if the status is a valid value
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusInProgress, StatusCompleted, StatusReopened:
		return true
	default:
		return false
	}
}

// String returns the string representation
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusDraft:
		return target == StatusInProgress
	case StatusInProgress:
		return target == StatusCompleted
	case StatusCompleted:
		return target == StatusReopened
	case StatusReopened:
		return target == StatusInProgress
	default:
		return false
	}
}

// AcceptsAnswers returns true if answers may be saved in this status
func (s Status) AcceptsAnswers() bool {
	return s == StatusDraft || s == StatusInProgress || s == StatusReopened
}
