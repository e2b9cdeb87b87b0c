// Package formflow provides multi-step form wizards for Go services.
//
// A wizard walks a user through an ordered sequence of steps. Each step is
// backed by one form or by several tagged forms shown together; steps can be
// grouped into pages with named substeps, and conditions switch steps on or
// off depending on earlier answers. Every request works on a Session that
// reads and writes per-step data through a pluggable Storage, so progress
// survives across requests and processes.
//
// # Core Concepts
//
//  1. Wizard
//  2. Session
//  3. Storage
//  4. Snapshot
//  5. Outbox and Worker
//
// # Wizard
//
// A Wizard is compiled once from a Config (or a WizardBuilder, or a YAML
// definition) and shared by all requests. It owns the step catalog: the
// flattened list of step keys such as "0", "contact" or "page1|address".
// The catalog may be produced lazily by a SpecFactory, which is run at most
// once.
//
// # Session
//
// Wizard.Open loads a Session over one user's Storage. The session exposes
// the wizard operations:
//
//   - View and Data render the JSON Snapshot
//   - Submit validates and stores one step, then advances the cursor
//   - Goto, Prev and Next move the cursor within the active steps
//   - Commit revalidates every active step, runs the DoneHandler and resets
//
// The active sequence is recomputed from the conditions on every call, so
// changing an earlier answer immediately adds or removes later steps.
// Commit is fail-fast: the first step that no longer validates is reported
// as a StaleStateError and the cursor moves to it.
//
// # Storage
//
// Backends are available for process memory, SQLite, PostgreSQL, Redis and
// MongoDB. A StorageBackend hands out one Storage per session key.
//
// # Snapshot
//
// Snapshot is the JSON contract with client front ends:
//
//	{
//	  "current_step": "page1|address",
//	  "done": false,
//	  "valid": false,
//	  "structure": ["page1|name", "page1|address", "confirm"],
//	  "steps": {"page1|name": {"form_id": "...", "valid": true, "data": {...}}}
//	}
//
// NewHTTPHandler serves it over HTTP with a cookie-keyed session.
//
// # Outbox and Worker
//
// OutboxHandler turns Commit into an enqueue: the cleaned data is put on a
// Queue and a Receipt is returned to the client. Workers from pkg/worker
// drain the queue with retries and backoff.
//
// Example:
//
//	w := formflow.New("newsletter").
//	    Step("contact", formflow.NewForm("Contact",
//	        formflow.EmailField("email"),
//	    )).
//	    MustBuild()
//
//	http.Handle("/newsletter/", http.StripPrefix("/newsletter",
//	    formflow.NewHTTPHandler(w, formflow.NewMemoryBackend(), formflow.HTTPOptions{})))
//
// For more, see the /examples directory.
package formflow
