package registry

import "github.com/sunbay-developer/taplink-sdk-go/internal/errs"

// Completion is the callback stored against one outstanding trace id
// (SPEC §3/§4.2, GLOSSARY "Completion"). OnProgress may be invoked any
// number of times before exactly one of OnSuccess/OnFailure fires.
type Completion struct {
	OnSuccess  func(result any)
	OnFailure  func(err *errs.Error)
	OnProgress func(status string, message string)
}

// Succeed invokes OnSuccess if set; callers outside the package use this
// instead of calling the field directly so a nil handler is a no-op.
func (c Completion) Succeed(result any) {
	if c.OnSuccess != nil {
		c.OnSuccess(result)
	}
}

// Fail invokes OnFailure if set.
func (c Completion) Fail(err *errs.Error) {
	if c.OnFailure != nil {
		c.OnFailure(err)
	}
}

// Progress invokes OnProgress if set.
func (c Completion) Progress(status, message string) {
	if c.OnProgress != nil {
		c.OnProgress(status, message)
	}
}

func (c Completion) fireSuccess(result any)      { c.Succeed(result) }
func (c Completion) fireFailure(err *errs.Error) { c.Fail(err) }
func (c Completion) fireProgress(status, message string) {
	c.Progress(status, message)
}
