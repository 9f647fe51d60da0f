package observable

import "reflect"

type listenerEntry[L any] struct {
	id uint64
	l  L
}

// listenerList is an ordered listener registry. Listeners are notified in
// registration order; comparable listeners are de-duplicated by reference.
type listenerList[L any] struct {
	entries []listenerEntry[L]
	lastID  uint64
}

// add registers l. It returns the entry ID and whether l was newly added;
// for a duplicate, the existing entry's ID is returned.
func (ll *listenerList[L]) add(l L) (uint64, bool) {
	for _, e := range ll.entries {
		if sameListener(e.l, l) {
			return e.id, false
		}
	}
	ll.lastID++
	ll.entries = append(ll.entries, listenerEntry[L]{id: ll.lastID, l: l})
	return ll.lastID, true
}

// removeID removes the entry with the given ID, preserving order.
func (ll *listenerList[L]) removeID(id uint64) bool {
	for i, e := range ll.entries {
		if e.id == id {
			ll.entries = append(ll.entries[:i:i], ll.entries[i+1:]...)
			return true
		}
	}
	return false
}

// remove removes l by reference. Non-comparable listeners are never matched.
func (ll *listenerList[L]) remove(l L) bool {
	for _, e := range ll.entries {
		if sameListener(e.l, l) {
			return ll.removeID(e.id)
		}
	}
	return false
}

// snapshot copies the listeners so a dispatch is unaffected by concurrent
// registration changes made by the listeners themselves.
func (ll *listenerList[L]) snapshot() []L {
	if len(ll.entries) == 0 {
		return nil
	}
	out := make([]L, len(ll.entries))
	for i, e := range ll.entries {
		out[i] = e.l
	}
	return out
}

func (ll *listenerList[L]) len() int {
	return len(ll.entries)
}

func (ll *listenerList[L]) clear() {
	ll.entries = nil
}

// sameListener reports whether a and b are the same listener. Listeners
// whose dynamic type is not comparable (function adapters) never match.
func sameListener(a, b any) bool {
	ta := reflect.TypeOf(a)
	if ta == nil || ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}
