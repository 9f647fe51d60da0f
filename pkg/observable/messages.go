package observable

import oberrors "github.com/vango-dev/observe/internal/errors"

// Messages resolves error codes to user-facing messages.
type Messages interface {
	Lookup(key string) (string, bool)
}

// MessageMap is a Messages backed by a map.
type MessageMap map[string]string

// Lookup implements Messages.
func (m MessageMap) Lookup(key string) (string, bool) {
	msg, ok := m[key]
	return msg, ok
}

// SetMessages installs the message lookup used when errors are built.
// Codes the lookup does not know keep their built-in message. Pass nil to
// restore the defaults. Call it at startup, before observables are in use.
func SetMessages(m Messages) {
	if m == nil {
		oberrors.SetMessageLookup(nil)
		return
	}
	oberrors.SetMessageLookup(m.Lookup)
}
