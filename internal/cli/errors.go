package cli

import (
	"errors"

	"github.com/ogulcanaydogan/listing-alerts/pkg/alerting"
)

// userError replaces domain errors with their end-user message.
func userError(err error) error {
	var (
		verr *alerting.ValidationError
		qerr *alerting.QuotaExceededError
		nerr *alerting.NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		return errors.New(verr.Message)
	case errors.As(err, &qerr):
		return errors.New(qerr.Message)
	case errors.As(err, &nerr):
		return errors.New(nerr.Message)
	}
	return err
}
