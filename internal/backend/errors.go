package backend

import "fmt"

// ValidationError is a backend-reported semantic rejection ("not your turn",
// "game not found"). Retrying one cannot succeed, so the submission pipeline
// returns it after a single attempt.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// TransientError is a transport failure or a 5xx-class backend failure.
// Eligible for retry.
type TransientError struct {
	Status int // 0 for pure transport failures
	Body   string
	Err    error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend request failed: %v", e.Err)
	}
	return fmt.Sprintf("backend HTTP %d: %s", e.Status, e.Body)
}

func (e *TransientError) Unwrap() error { return e.Err }

// UnavailableError is produced when retries exhaust; it carries the final
// attempt's failure verbatim.
type UnavailableError struct {
	Attempts int
	Last     error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("backend unavailable after %d attempts: %v", e.Attempts, e.Last)
}

func (e *UnavailableError) Unwrap() error { return e.Last }
