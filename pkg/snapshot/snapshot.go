package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	oberrors "github.com/vango-dev/observe/internal/errors"
	"github.com/vango-dev/observe/pkg/observable"
	"github.com/vango-dev/observe/pkg/server"
)

// Version is the snapshot document version written by Capture.
const Version = 1

// Document is the JSON form of a snapshot.
type Document struct {
	Version int                        `json:"version"`
	TakenAt time.Time                  `json:"takenAt"`
	Values  map[string]json.RawMessage `json:"values"`
}

// Report describes the outcome of Restore.
type Report struct {
	// Restored lists values that were written.
	Restored []string

	// Skipped lists names that are unknown, disposed or not writable cells.
	Skipped []string

	// Vetoed lists values whose write was vetoed.
	Vetoed []string

	// Failed holds values whose write failed for another reason.
	Failed map[string]error
}

// Capture encodes the current value of every binding in reg. Disposed values
// are left out.
func Capture(ctx context.Context, reg *server.Registry) ([]byte, error) {
	doc := Document{
		Version: Version,
		TakenAt: time.Now().UTC(),
		Values:  make(map[string]json.RawMessage),
	}

	var encodeErr error
	err := reg.Realm().Sync(ctx, func() {
		for _, name := range reg.Names() {
			b, ok := reg.Lookup(name)
			if !ok || b.Observable().IsDisposed() {
				continue
			}
			raw, err := json.Marshal(b.Get())
			if err != nil {
				encodeErr = err
				return
			}
			doc.Values[name] = raw
		}
	})
	if err == nil {
		err = encodeErr
	}
	if err != nil {
		return nil, oberrors.New(oberrors.CodeSnapshotSave).Wrap(err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, oberrors.New(oberrors.CodeSnapshotSave).Wrap(err)
	}
	return data, nil
}

// Restore writes the values of a snapshot back into reg. Only writable cells
// are restored; derived values follow from them. Unknown names and other
// kinds are skipped. Per-value failures are reported, not returned.
func Restore(ctx context.Context, reg *server.Registry, data []byte) (*Report, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, oberrors.New(oberrors.CodeSnapshotLoad).
			WithDetail("invalid snapshot document").
			Wrap(err)
	}
	if doc.Version != Version {
		return nil, oberrors.New(oberrors.CodeSnapshotLoad).
			WithDetailf("unsupported snapshot version %d", doc.Version)
	}

	report := &Report{Failed: make(map[string]error)}
	err := reg.Realm().Sync(ctx, func() {
		for _, name := range sortedKeys(doc.Values) {
			b, ok := reg.Lookup(name)
			if !ok || b.Observable().Kind() != observable.KindWritable || b.Observable().IsDisposed() {
				report.Skipped = append(report.Skipped, name)
				continue
			}
			switch err := b.Decode(doc.Values[name]); {
			case err == nil:
				report.Restored = append(report.Restored, name)
			case errors.Is(err, observable.ErrChangeVetoed):
				report.Vetoed = append(report.Vetoed, name)
			default:
				report.Failed[name] = err
			}
		}
	})
	if err != nil {
		return nil, oberrors.New(oberrors.CodeSnapshotLoad).Wrap(err)
	}
	return report, nil
}

// Save captures reg and stores it under key.
func Save(ctx context.Context, store Store, key string, reg *server.Registry) error {
	data, err := Capture(ctx, reg)
	if err != nil {
		return err
	}
	if err := store.Save(ctx, key, data); err != nil {
		return oberrors.New(oberrors.CodeSnapshotSave).WithDetail(key).Wrap(err)
	}
	return nil
}

// Load restores reg from the snapshot stored under key. A missing snapshot
// returns an error wrapping ErrNotFound.
func Load(ctx context.Context, store Store, key string, reg *server.Registry) (*Report, error) {
	data, err := store.Load(ctx, key)
	if err != nil {
		return nil, oberrors.New(oberrors.CodeSnapshotLoad).WithDetail(key).Wrap(err)
	}
	return Restore(ctx, reg, data)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
