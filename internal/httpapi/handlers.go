package httpapi

import (
	"net/http"

	"github.com/petrijr/formflow/pkg/api"
)

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.open(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	step := stepParam(r, "step")

	if r.URL.Query().Has("reset") {
		if err := sess.Reset(ctx); err != nil {
			s.writeError(w, r, err)
			return
		}
		step = ""
	}

	var (
		snap *api.Snapshot
		err  error
	)
	switch step {
	case s.names.Data, s.names.Done:
		snap, err = sess.Data(ctx)
	default:
		snap, err = sess.View(ctx, step)
	}
	s.respond(w, r, snap, err)
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.open(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	step := stepParam(r, "step")

	switch step {
	case s.names.Commit:
		s.handleCommit(w, r, sess)
		return
	case s.names.Prev:
		snap, err := sess.Prev(ctx)
		s.respond(w, r, snap, err)
		return
	case s.names.Next:
		snap, err := sess.Next(ctx)
		s.respond(w, r, snap, err)
		return
	case s.names.Goto:
		snap, err := sess.Goto(ctx, "")
		s.respond(w, r, snap, err)
		return
	}

	data, files, err := s.readSubmission(r, step)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := sess.Submit(ctx, step, data, files)
	s.respond(w, r, snap, err)
}

func (s *Server) handleGoto(w http.ResponseWriter, r *http.Request) {
	if stepParam(r, "op") != s.names.Goto {
		http.NotFound(w, r)
		return
	}
	sess, ok := s.open(w, r)
	if !ok {
		return
	}
	snap, err := sess.Goto(r.Context(), stepParam(r, "target"))
	s.respond(w, r, snap, err)
}

// handleCommit serves the done handler's result: handlers are served as
// the response, anything else is encoded as JSON.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request, sess api.Session) {
	result, err := sess.Commit(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	switch v := result.(type) {
	case http.Handler:
		v.ServeHTTP(w, r)
	case nil:
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusOK, v)
	}
}
