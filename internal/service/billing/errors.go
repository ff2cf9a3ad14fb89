package billing

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned for unknown or ended session ids.
var ErrSessionNotFound = errors.New("session not found")

// PartialCommitError reports an invoice whose document was archived but whose
// ledger row could not be appended. The document stays at DocumentPath.
type PartialCommitError struct {
	InvoiceNumber string
	DocumentPath  string
	Err           error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("invoice %s archived at %s but not logged: %v", e.InvoiceNumber, e.DocumentPath, e.Err)
}

func (e *PartialCommitError) Unwrap() error {
	return e.Err
}
