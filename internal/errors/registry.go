package errors

import (
	"sort"
	"sync"
)

// Registered error codes.
const (
	CodeUnsupportedOperation = "OB001"
	CodeChangeVetoed         = "OB002"
	CodeDisposed             = "OB003"
	CodeWrongRealm           = "OB004"
	CodeTypeMismatch         = "OB005"
	CodeBinding              = "OB010"
	CodeRealmClosed          = "OB011"

	CodeConfigNotFound = "OB020"
	CodeConfigParse    = "OB021"
	CodeConfigInvalid  = "OB022"

	CodeSnapshotSave = "OB030"
	CodeSnapshotLoad = "OB031"

	CodeUnknownValue = "OB040"
	CodeWriteBudget  = "OB041"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Suggestion string
}

var (
	registryMu sync.RWMutex

	// registry maps error codes to their templates.
	registry = map[string]ErrorTemplate{
		// Observable usage (OB001-OB019)
		CodeUnsupportedOperation: {
			Category:   CategoryUsage,
			Message:    "Unsupported operation",
			Suggestion: "Read-only observables reject Set; write to the underlying value instead.",
		},
		CodeChangeVetoed: {
			Category: CategoryVeto,
			Message:  "Change vetoed",
		},
		CodeDisposed: {
			Category:   CategoryUsage,
			Message:    "Observable disposed",
			Suggestion: "Drop references to an observable once Dispose has been called.",
		},
		CodeWrongRealm: {
			Category:   CategoryUsage,
			Message:    "Observable accessed outside its realm",
			Suggestion: "Use Realm.Exec or Realm.Sync to run the access on the realm goroutine.",
		},
		CodeTypeMismatch: {
			Category: CategoryUsage,
			Message:  "Value type mismatch",
		},
		CodeBinding: {
			Category: CategoryBinding,
			Message:  "Could not resolve derived observable",
		},
		CodeRealmClosed: {
			Category: CategoryUsage,
			Message:  "Realm closed",
		},

		// Configuration (OB020-OB029)
		CodeConfigNotFound: {
			Category:   CategoryConfig,
			Message:    "Configuration file not found",
			Suggestion: "Create observe.json or observe.yaml, or pass --config.",
		},
		CodeConfigParse: {
			Category: CategoryConfig,
			Message:  "Configuration file could not be parsed",
		},
		CodeConfigInvalid: {
			Category: CategoryConfig,
			Message:  "Invalid configuration",
		},

		// Snapshot storage (OB030-OB039)
		CodeSnapshotSave: {
			Category: CategoryStorage,
			Message:  "Snapshot save failed",
		},
		CodeSnapshotLoad: {
			Category: CategoryStorage,
			Message:  "Snapshot load failed",
		},

		// Binding server (OB040-OB049)
		CodeUnknownValue: {
			Category: CategoryUsage,
			Message:  "Unknown value",
		},
		CodeWriteBudget: {
			Category:   CategoryUsage,
			Message:    "Write budget exceeded",
			Suggestion: "Reduce the write rate or raise server.writesPerSecond.",
		},
	}
)

// GetAllCodes returns all registered error codes in sorted order.
func GetAllCodes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[code] = template
}
