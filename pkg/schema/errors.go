package schema

import "fmt"

// ParseError reports a model reply that could not be turned into the target
// type. Raw holds the reply exactly as received.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse model output: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
