package observable

// SetOutcome classifies how a Set call ended.
type SetOutcome int

const (
	// SetCommitted means the value was stored and listeners were notified.
	SetCommitted SetOutcome = iota
	// SetUnchanged means the value equalled the current one; nothing happened.
	SetUnchanged
	// SetVetoed means a changing listener rejected the write.
	SetVetoed
	// SetFailed means the write was rejected for another reason.
	SetFailed
)

// String returns a human-readable name for the outcome.
func (o SetOutcome) String() string {
	switch o {
	case SetCommitted:
		return "committed"
	case SetUnchanged:
		return "unchanged"
	case SetVetoed:
		return "vetoed"
	case SetFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Monitor receives instrumentation callbacks from every observable of a realm.
// Callbacks run synchronously on the realm and must not call back into the
// observable.
type Monitor interface {
	// SetStarted is called when a write begins. The returned function is
	// called exactly once when it ends.
	SetStarted(o Observable) func(outcome SetOutcome, err error)

	// Recomputed is called each time a derived value recomputes.
	Recomputed(o Observable)

	// Subscribed is called when o gains its first listener.
	Subscribed(o Observable)

	// Unsubscribed is called when o loses its last listener.
	Unsubscribed(o Observable)

	// Disposed is called once when o is disposed.
	Disposed(o Observable)
}

func noopSetDone(SetOutcome, error) {}
