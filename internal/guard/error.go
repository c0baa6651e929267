package guard

import (
	"fmt"

	"github.com/google/uuid"
)

// Error is the single normalized failure type leaving Execute. Kind is one of
// the domain sentinel errors; Err carries the original cause when there is
// one. Both unwrap, so errors.Is works against the kind and the cause alike.
type Error struct {
	Kind        error
	OperationID uuid.UUID
	Err         error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("guard: operation %s: %v", e.OperationID, e.Kind)
	}
	return fmt.Sprintf("guard: operation %s: %v: %v", e.OperationID, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
