package alerting

import "fmt"

// ValidationError reports caller input that cannot be accepted. Message is safe to show to end users.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// QuotaExceededError is returned when an owner already holds the maximum number of alerts.
type QuotaExceededError struct {
	Limit   int
	Message string
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("alert quota of %d exceeded", e.Limit)
}

// NotFoundError is returned when an alert does not exist or belongs to another owner.
// The two cases are deliberately indistinguishable.
type NotFoundError struct {
	ID      string
	Message string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("alert %q not found", e.ID)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func quotaExceeded(limit int) error {
	return &QuotaExceededError{
		Limit:   limit,
		Message: fmt.Sprintf("You can have at most %d alerts. Delete or edit an existing alert to add a new one.", limit),
	}
}

func notFound(id string) error {
	return &NotFoundError{ID: id, Message: "Alert not found."}
}
