// Package journey provides a persisted, resumable multi-page form-flow
// engine for Go.
//
// Journey is designed for web backends that walk users through long-running,
// multi-step workflows: wizard-style forms, record merges, request
// resolutions. It runs fully in Go, supports multiple persistence backends,
// and integrates with any router, because its only transport-facing input
// is a per-request set of key/value pairs.
//
// # Core Concepts
//
// The journey programming model is intentionally small:
//
//  1. Descriptor
//  2. InstanceID
//  3. Instance
//  4. History
//  5. Provider
//
// A Descriptor declares a journey: a unique name, the Go type of its state,
// the request values that identify one running occurrence (for example a
// person id), and whether a random unique key is appended so several
// occurrences can run concurrently for the same subject.
//
// An InstanceID is computed deterministically from a descriptor and the
// values of the current request. The same URL always resolves to the same
// instance, which is what makes a journey resumable: the user can close the
// tab, come back, and pick up where they left off.
//
// An Instance wraps one stored occurrence. Handlers read its typed state,
// mutate it through UpdateState (persisted before the call returns), record
// step transitions so back links work, and finally Complete or Delete it.
//
// History is the instance's ordered list of visited steps. Moving forward
// past a step discards steps recorded ahead of it, so a user who goes back
// and takes a different branch invalidates the abandoned future.
//
// The Provider ties it together: given a request, it resolves or creates
// the instance the request implies, caches it for the rest of the request,
// and refuses instances whose journey or state type no longer match what
// the handler expects.
//
// # Persistence
//
// Providers can be backed by different storage systems:
//
//   - In-memory (non-durable, best for tests)
//   - SQLite (embedded durability)
//   - Postgres
//   - Redis
//
// The SQL-backed stores accept anything that satisfies the database/sql
// query surface, so journey-state writes can join the caller's transaction
// and commit atomically with the handler's own domain writes.
//
// # Getting Started
//
//	type MergePersonState struct {
//		OtherTrn *string
//	}
//
//	func (MergePersonState) JourneyDescriptor() journey.Descriptor {
//		return journey.NewDescriptor[MergePersonState]("merge-person", []string{"personId"}, true)
//	}
//
//	p := journey.NewInMemoryProvider()
//	if err := journey.RegisterStates(p, MergePersonState{}); err != nil {
//		log.Fatal(err)
//	}
//
//	// In a handler:
//	req := journey.RequestContextFromURL(r.URL, routeValues)
//	inst, err := journey.GetOrCreate(ctx, p, req, "merge-person", func() *MergePersonState {
//		return &MergePersonState{}
//	})
//
// See the examples directory for a complete HTTP wizard.
package journey
