// Package api contains the building blocks of the formflow wizard
// controller: the form capability contract, step specifications and the
// compiled catalog, conditions, the per-session storage interface, the JSON
// snapshot and the error taxonomy.
//
// Most users interact with the higher-level formflow package, which
// re-exports selected types and helpers from this package. The api package is
// intended for custom integrations such as new storage backends, renderers or
// form implementations.
//
// # Concepts
//
//   - Forms are opaque validatable units (Form). A FormDescriptor creates
//     them; the wizard never looks at individual fields.
//   - A step is backed by a FormGroup: a single descriptor, or several
//     descriptors addressed by tags.
//   - A Spec lists steps in order. Pages with substeps flatten into
//     composite keys "<page>|<substep>".
//   - Conditions decide which catalog steps are active. They are evaluated
//     against the cleaned data persisted so far, on every navigation
//     decision.
//   - Storage holds everything a session remembers between requests: the
//     current step, raw data and file references per step, and extra data.
//
// # Errors
//
// ConfigurationError is returned while a wizard is being built.
// ValidationError, NavigationError and StaleStateError are returned from
// session operations and can be matched with errors.Is against
// ErrValidation, ErrNavigation and ErrStaleState.
//
// # Observability
//
// Observer receives session events. NoopObserver, CompositeObserver,
// LoggingObserver (log/slog) and BasicMetrics are provided.
package api
