package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/formflow/internal/files"
	"github.com/petrijr/formflow/internal/forms"
	"github.com/petrijr/formflow/internal/persistence"
	"github.com/petrijr/formflow/internal/wizard"
	"github.com/petrijr/formflow/pkg/api"
)

var (
	contact = forms.New("Contact", forms.Text("name", 100), forms.Int("age").Optional())
	address = forms.New("Address", forms.Text("street", 100))
	upload  = forms.New("Upload", forms.FileUpload("cv"))
)

type client struct {
	t    *testing.T
	srv  *httptest.Server
	http *http.Client
}

func newClient(t *testing.T, h http.Handler) *client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{
		t:   t,
		srv: srv,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *client) do(req *http.Request) (*http.Response, []byte) {
	c.t.Helper()
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, body
}

func (c *client) get(path string) (*http.Response, []byte) {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.srv.URL+path, nil)
	require.NoError(c.t, err)
	return c.do(req)
}

func (c *client) postForm(path string, data url.Values) (*http.Response, []byte) {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodPost, c.srv.URL+path, strings.NewReader(data.Encode()))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) postJSON(path, body string) (*http.Response, []byte) {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodPost, c.srv.URL+path, strings.NewReader(body))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func decodeSnapshot(t *testing.T, body []byte) *api.Snapshot {
	t.Helper()
	var snap api.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap), string(body))
	return &snap
}

func decodeReason(t *testing.T, body []byte) string {
	t.Helper()
	var e errorBody
	require.NoError(t, json.Unmarshal(body, &e), string(body))
	return e.Reason
}

func newServer(t *testing.T, cfg api.Config, opts Options) (*Server, *persistence.MemoryBackend) {
	t.Helper()
	w, err := wizard.New(cfg)
	require.NoError(t, err)
	backend := persistence.NewMemoryBackend()
	return New(w, backend, opts), backend
}

func TestServer_RunsWizardToRedirect(t *testing.T) {
	var got *api.Completion
	srv, backend := newServer(t, api.Config{
		Steps: api.Spec{{Group: api.Single(contact)}, {Group: api.Single(address)}},
		Done: func(_ context.Context, c *api.Completion) (any, error) {
			got = c
			return http.RedirectHandler("/next-page/", http.StatusFound), nil
		},
	}, Options{})
	c := newClient(t, srv)

	resp, body := c.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0", decodeSnapshot(t, body).Current())
	require.NotEmpty(t, resp.Cookies())
	assert.Equal(t, DefaultCookieName, resp.Cookies()[0].Name)

	resp, body = c.postForm("/0", url.Values{"name": {"Ada"}, "age": {"36"}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "1", decodeSnapshot(t, body).Current())
	assert.Empty(t, resp.Cookies(), "cookie is only set once")

	resp, body = c.postForm("/1", url.Values{"street": {"Main St"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decodeSnapshot(t, body)
	assert.True(t, snap.Done)
	assert.Nil(t, snap.CurrentStep)

	resp, _ = c.postForm("/commit", nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/next-page/", resp.Header.Get("Location"))
	require.NotNil(t, got)
	assert.Equal(t, int64(36), got.All["age"])
	assert.Equal(t, 0, backend.Len())
}

func TestServer_CommitResultAsJSON(t *testing.T) {
	srv, _ := newServer(t, api.Config{Steps: api.Spec{{Group: api.Single(address)}}}, Options{})
	c := newClient(t, srv)

	c.postForm("/0", url.Values{"street": {"Main St"}})
	resp, body := c.postForm("/commit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]map[string]any
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, "Main St", result["0"]["street"])
}

func TestServer_InvalidSubmission(t *testing.T) {
	srv, _ := newServer(t, api.Config{Steps: api.Spec{{Group: api.Single(contact)}}}, Options{})
	c := newClient(t, srv)

	resp, body := c.postForm("/0", url.Values{"name": {""}, "age": {"old"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	snap := decodeSnapshot(t, body)
	assert.Equal(t, "0", snap.Current())
	assert.False(t, snap.Steps["0"].Valid)
	assert.Equal(t, "old", snap.Steps["0"].Data["age"])
}

func TestServer_JSONBody(t *testing.T) {
	srv, _ := newServer(t, api.Config{Steps: api.Spec{{Group: api.Single(contact)}, {Group: api.Single(address)}}}, Options{})
	c := newClient(t, srv)

	resp, body := c.postJSON("/0", `{"name": "Ada", "age": 36}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	snap := decodeSnapshot(t, body)
	assert.Equal(t, "1", snap.Current())
	assert.Equal(t, float64(36), snap.Steps["0"].Data["age"])

	resp, body = c.postJSON("/1", `[1, 2]`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decodeReason(t, body), "decode JSON body")
}

func TestServer_Navigation(t *testing.T) {
	srv, _ := newServer(t, api.Config{
		Steps: api.Spec{
			{Name: "page1", Substeps: api.Spec{{Name: "a", Group: api.Single(contact)}, {Name: "b", Group: api.Single(address)}}},
			{Name: "page2", Group: api.Single(address)},
		},
		Conditions: api.Conditions{"page2": api.When(false)},
	}, Options{})
	c := newClient(t, srv)

	resp, body := c.postForm("/goto/page1%7Cb", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "page1|b", decodeSnapshot(t, body).Current())

	resp, body = c.get("/")
	assert.Equal(t, "page1|b", decodeSnapshot(t, body).Current())

	resp, body = c.postForm("/goto", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "step is not defined", decodeReason(t, body))

	resp, body = c.postForm("/goto/page2", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unknown step", decodeReason(t, body))

	resp, body = c.postForm("/next", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "no next step", decodeReason(t, body))

	resp, body = c.postForm("/prev", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "page1|a", decodeSnapshot(t, body).Current())

	resp, body = c.get("/page1%7Cb")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "page1|b", decodeSnapshot(t, body).Current())
	assert.Equal(t, []string{"page1|a", "page1|b"}, decodeSnapshot(t, body).Structure)

	resp, _ = c.postForm("/goto/x/y", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_DataAndReset(t *testing.T) {
	srv, _ := newServer(t, api.Config{Steps: api.Spec{{Group: api.Single(contact)}, {Group: api.Single(address)}}}, Options{})
	c := newClient(t, srv)

	c.postForm("/0", url.Values{"name": {"Ada"}})

	resp, body := c.get("/data")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decodeSnapshot(t, body)
	assert.False(t, snap.Done)
	assert.Equal(t, "1", snap.Current())
	assert.True(t, snap.Steps["0"].Valid)

	resp, body = c.get("/?reset")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap = decodeSnapshot(t, body)
	assert.Equal(t, "0", snap.Current())
	assert.False(t, snap.Steps["0"].Valid)
}

func TestServer_StaleCommit(t *testing.T) {
	srv, _ := newServer(t, api.Config{Steps: api.Spec{{Group: api.Single(contact)}, {Group: api.Single(address)}}}, Options{})
	c := newClient(t, srv)

	c.postForm("/0", url.Values{"name": {"Ada"}})
	resp, body := c.postForm("/commit", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "1", decodeSnapshot(t, body).Current())
}

func TestServer_MultipartUpload(t *testing.T) {
	store := files.NewMemory()
	srv, _ := newServer(t, api.Config{
		Steps:       api.Spec{{Name: "cv", Group: api.Single(upload)}},
		FileStorage: store,
	}, Options{Files: store})
	c := newClient(t, srv)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("cv", "resume.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, c.srv.URL+"/cv", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, body := c.do(req)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	snap := decodeSnapshot(t, body)
	assert.True(t, snap.Done)
	assert.Equal(t, "resume.txt", snap.Steps["cv"].Data["cv"])
}

func TestServer_UploadWithoutFileStorage(t *testing.T) {
	srv, _ := newServer(t, api.Config{Steps: api.Spec{{Group: api.Single(address)}}}, Options{})
	c := newClient(t, srv)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("street", "a.txt")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("x"))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, c.srv.URL+"/0", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, _ := c.do(req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_MalformedCookieGetsReplaced(t *testing.T) {
	srv, _ := newServer(t, api.Config{Steps: api.Spec{{Group: api.Single(address)}}}, Options{CookieName: "wiz"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "wiz", Value: "../../etc"})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "wiz", cookies[0].Name)
	assert.NotEqual(t, "../../etc", cookies[0].Value)
	assert.True(t, persistence.ValidSessionKey(cookies[0].Value))
}

type brokenBackend struct{ err error }

func (b brokenBackend) Storage(string) api.Storage { return brokenStorage(b) }

type brokenStorage struct{ err error }

func (s brokenStorage) CurrentStep(context.Context) (string, error)           { return "", s.err }
func (s brokenStorage) SetCurrentStep(context.Context, string) error          { return s.err }
func (s brokenStorage) StepData(context.Context, string) (api.Values, error)  { return nil, s.err }
func (s brokenStorage) SetStepData(context.Context, string, api.Values) error { return s.err }
func (s brokenStorage) StepFiles(context.Context, string) (api.Files, error)  { return nil, s.err }
func (s brokenStorage) SetStepFiles(context.Context, string, api.Files) error { return s.err }
func (s brokenStorage) ExtraData(context.Context) (map[string]any, error)     { return nil, s.err }
func (s brokenStorage) SetExtraData(context.Context, map[string]any) error    { return s.err }
func (s brokenStorage) Reset(context.Context) error                           { return s.err }

func TestServer_StorageFailureIs500(t *testing.T) {
	w, err := wizard.New(api.Config{Steps: api.Spec{{Group: api.Single(address)}}})
	require.NoError(t, err)
	srv := New(w, brokenBackend{err: errors.New("connection refused")}, Options{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decodeReason(t, rec.Body.Bytes()), "connection refused")
}

func TestFlattenJSON(t *testing.T) {
	got, err := flattenJSON(strings.NewReader(`{
		"name": "Ada",
		"age": 36,
		"ok": true,
		"tags": ["a", "b", null],
		"none": null,
		"empty": [],
		"nested": {"x": 1}
	}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"Ada"}, got["name"])
	assert.Equal(t, []string{"36"}, got["age"])
	assert.Equal(t, []string{"true"}, got["ok"])
	assert.Equal(t, []string{"a", "b"}, got["tags"])
	assert.NotContains(t, got, "none")
	assert.Equal(t, []string{}, got["empty"])
	assert.Equal(t, []string{`{"x":1}`}, got["nested"])

	empty, err := flattenJSON(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, empty)
}
