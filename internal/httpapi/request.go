package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/petrijr/formflow/pkg/api"
)

// badRequestError is an error caused by a malformed request body.
type badRequestError struct{ err error }

func (e *badRequestError) Error() string { return e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

func badRequest(format string, args ...any) error {
	return &badRequestError{err: fmt.Errorf(format, args...)}
}

// readSubmission extracts the submitted values of step. Uploaded files are
// written to the file storage right away; only their references travel on.
func (s *Server) readSubmission(r *http.Request, step string) (api.Values, api.Files, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/json":
		data, err := flattenJSON(r.Body)
		return data, nil, err

	case "multipart/form-data":
		if err := r.ParseMultipartForm(s.opts.MaxMemory); err != nil {
			return nil, nil, badRequest("parse multipart body: %v", err)
		}
		files, err := s.saveFiles(r, step)
		if err != nil {
			return nil, nil, err
		}
		return api.Values(r.MultipartForm.Value), files, nil

	default:
		if err := r.ParseForm(); err != nil {
			return nil, nil, badRequest("parse form body: %v", err)
		}
		return r.PostForm, nil, nil
	}
}

func (s *Server) saveFiles(r *http.Request, step string) (api.Files, error) {
	if len(r.MultipartForm.File) == 0 {
		return nil, nil
	}
	if s.opts.Files == nil {
		return nil, badRequest("step %q does not accept files", step)
	}
	files := make(api.Files, len(r.MultipartForm.File))
	for field, headers := range r.MultipartForm.File {
		if len(headers) == 0 {
			continue
		}
		h := headers[0]
		f, err := h.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload %q: %w", field, err)
		}
		stored, err := s.opts.Files.Save(r.Context(), step, field, h.Filename, f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("save upload %q: %w", field, err)
		}
		if ct := h.Header.Get("Content-Type"); ct != "" {
			stored.ContentType = ct
		}
		files[field] = stored
	}
	return files, nil
}

// flattenJSON turns a JSON object into multi-valued form data: arrays
// become repeated values, scalars their string form, nested objects their
// JSON encoding. Nulls are dropped.
func flattenJSON(body io.Reader) (api.Values, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		if errors.Is(err, io.EOF) {
			return api.Values{}, nil
		}
		return nil, badRequest("decode JSON body: %v", err)
	}
	out := make(api.Values, len(obj))
	for k, v := range obj {
		if list, ok := v.([]any); ok {
			for _, e := range list {
				if s, ok := scalarString(e); ok {
					out.Add(k, s)
				}
			}
			if _, seen := out[k]; !seen {
				out[k] = []string{}
			}
			continue
		}
		if s, ok := scalarString(v); ok {
			out.Set(k, s)
		}
	}
	return out, nil
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(t); err != nil {
			return "", false
		}
		return string(bytes.TrimSpace(buf.Bytes())), true
	}
}
