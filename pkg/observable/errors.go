package observable

import (
	"errors"
	"fmt"

	oberrors "github.com/vango-dev/observe/internal/errors"
)

// Error is the structured error returned by observables. Every Error wraps
// one of the sentinels below, so callers match with errors.Is.
type Error = oberrors.Error

// Error codes, usable as keys for SetMessages.
const (
	CodeUnsupportedOperation = oberrors.CodeUnsupportedOperation
	CodeChangeVetoed         = oberrors.CodeChangeVetoed
	CodeDisposed             = oberrors.CodeDisposed
	CodeWrongRealm           = oberrors.CodeWrongRealm
	CodeTypeMismatch         = oberrors.CodeTypeMismatch
	CodeBinding              = oberrors.CodeBinding
	CodeRealmClosed          = oberrors.CodeRealmClosed
)

var (
	// ErrUnsupportedOperation is returned by Set on read-only observables.
	ErrUnsupportedOperation = errors.New("observable: unsupported operation")

	// ErrChangeVetoed is returned by Set when a changing listener vetoed the write.
	// The stored value is unchanged and no change listener was notified.
	ErrChangeVetoed = errors.New("observable: change vetoed")

	// ErrDisposed is returned by writes on a disposed observable.
	ErrDisposed = errors.New("observable: disposed")

	// ErrWrongRealm is raised (as a panic or a log entry, depending on the
	// realm's RealmCheckMode) when an observable is used outside its realm.
	ErrWrongRealm = errors.New("observable: accessed outside realm")

	// ErrTypeMismatch is returned when a type-erased write carries a value of
	// the wrong dynamic type.
	ErrTypeMismatch = errors.New("observable: value type mismatch")

	// ErrBinding is returned when a derived observable cannot resolve its source.
	ErrBinding = errors.New("observable: binding failed")

	// ErrRealmClosed is returned by Realm.Sync after Close.
	ErrRealmClosed = errors.New("observable: realm closed")
)

func newError(code string, sentinel error, o Observable) *Error {
	err := oberrors.New(code).Wrap(sentinel)
	if o != nil {
		err.WithDetail(describe(o))
	}
	return err
}

func newErrorCause(code string, sentinel, cause error, o Observable) *Error {
	err := newError(code, sentinel, o)
	if cause != nil {
		err.Wrap(errors.Join(sentinel, cause))
	}
	return err
}

// NewTypeMismatchError reports that value cannot be stored in o.
func NewTypeMismatchError(o Observable, want fmt.Stringer, value any) error {
	return newError(CodeTypeMismatch, ErrTypeMismatch, o).
		WithDetailf("%s: want %s, got %T", describe(o), want, value)
}

// describe names an observable for errors and logs.
func describe(o Observable) string {
	if name := o.Name(); name != "" {
		return fmt.Sprintf("%s %q", o.Kind(), name)
	}
	return fmt.Sprintf("%s#%d", o.Kind(), o.ID())
}

// outcomeOf maps a Set error to its monitor outcome.
func outcomeOf(err error) SetOutcome {
	switch {
	case err == nil:
		return SetCommitted
	case errors.Is(err, ErrChangeVetoed):
		return SetVetoed
	default:
		return SetFailed
	}
}
