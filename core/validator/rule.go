package validator

import "strings"

// Rule is a single checkable condition plus the error it contributes if
// the condition is false.
type Rule struct {
	Check func() bool
	Error ValidationError
}

// ValidationError describes one failed field-level rule.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface for a single ValidationError.
func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors collects every failed rule encountered while
// validating a struct.
type ValidationErrors []ValidationError

// Add appends err to the collection.
func (errs *ValidationErrors) Add(err ValidationError) {
	*errs = append(*errs, err)
}

// IsEmpty reports whether no rule failed.
func (errs ValidationErrors) IsEmpty() bool {
	return len(errs) == 0
}

// Error implements the error interface, joining every field message.
func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}
