package hooks

import "fmt"

// HookError describes why a hook was skipped.
type HookError struct {
	Hook   string
	Reason string
	Detail any
	Err    error
}

func (e *HookError) Error() string {
	msg := fmt.Sprintf("hook %q: %s", e.Hook, e.Reason)
	if e.Detail != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Detail)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *HookError) Unwrap() error { return e.Err }
