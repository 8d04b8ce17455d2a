// Package api contains the core building blocks used by the journey engine.
// It provides the low-level primitives for describing journeys, resolving
// instance identity from request values, persisting journey state, and
// observing instance lifecycle.
//
// Most users interact with the higher-level journey package, which re-exports
// selected types and helpers from this package. The api package is intended
// for advanced use cases, custom store implementations, or contributors
// extending the engine itself.
//
// # Concepts
//
// The api package centers around a small set of concepts:
//
//   - Descriptors and the journey registry
//   - Instance identity
//   - Instances and typed state access
//   - Step history
//   - The state store contract
//   - Observability
//
// # Descriptors
//
// A Descriptor describes one journey: its name, the type of state it carries,
// the request values that identify one running occurrence, and whether a
// random unique key is appended so several occurrences can run concurrently
// for the same subject.
//
// Descriptors are immutable once constructed and are registered with a
// Provider before any instance can be created.
//
// # Instance identity
//
// An InstanceID is derived deterministically from a Descriptor and the
// ambient values of the current request. The same logical values always
// produce the same serialized id, so a user can resume a journey simply by
// reloading the same URL.
//
// # Instances
//
// An Instance is the runtime view of one stored journey occurrence. Its
// state is opaque to the engine; callers obtain a typed view via Typed and
// mutate state through UpdateState, which persists the replacement state
// before returning. Completion and deletion are monotonic: a completed
// instance stays readable but rejects further mutation, a deleted instance
// rejects everything.
//
// # Step history
//
// History records the URL-identified waypoints a user has passed through.
// Advancing past a step discards any steps recorded ahead of it, which is
// how abandoned branches are invalidated. History is persisted together
// with the state.
//
// # The state store contract
//
// StateStore is the only thing a persistence backend must satisfy. The
// engine ships in-memory, SQLite, Postgres and Redis implementations; custom
// backends plug in via journey.NewProvider.
package api
