// Package errors provides the structured error taxonomy used across observe.
//
// Every error raised by the observable core, the configuration loader and the
// binding server is an *Error carrying a stable code from the registry:
//
//   - usage: misuse of an observable (read-only write, disposed access,
//     wrong realm, type mismatch)
//   - veto: a changing listener rejected a proposed write
//   - binding: a derived observable could not resolve its source
//   - config: invalid configuration files or values
//   - storage: snapshot persistence failures
//
// # Usage
//
//	err := errors.New(errors.CodeChangeVetoed).
//	    WithDetail("listener rejected value 42").
//	    Wrap(cause)
//
//	fmt.Println(err.Format())
//	// ERROR OB002: Change vetoed
//	//
//	//   listener rejected value 42
//
// Messages are resolved through an optional lookup installed with
// SetMessageLookup, falling back to the built-in registry.
package errors
