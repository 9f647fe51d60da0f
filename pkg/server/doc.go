// Package server exposes named observables over HTTP.
//
// A Registry maps names to observables of one realm. The Server serves it
// with chi:
//
//	GET  /values               list every value
//	GET  /values/{name}        read one value
//	PUT  /values/{name}        write {"value": ...}
//	GET  /values/{name}/watch  websocket stream of changes
//	GET  /healthz              liveness
//
// Writes map observable errors to HTTP statuses: 400 for a value of the
// wrong type, 404 for an unknown name, 405 for read-only values, 409 for a
// vetoed write, 410 for a disposed value and 429 when the write budget is
// exhausted.
//
// Each watch message is a JSON object:
//
//	{"name": "font", "old": "Mono", "new": "Sans", "stale": false}
//
// Handlers run observable code on the registry's realm with Realm.Sync, so
// the realm must be a loop realm whose Run is active:
//
//	realm := observable.NewRealm()
//	go realm.Run(ctx)
//
//	reg := server.NewRegistry(realm)
//	font := observable.NewWritableValue("Mono", observable.WithRealm(realm))
//	server.Register(reg, "font", font)
//
//	srv := server.New(reg, &server.Config{Address: ":7070"})
//	srv.Run(ctx)
package server
