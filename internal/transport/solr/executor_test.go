package solr

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kailas-cloud/multiid/internal/domain"
	"github.com/kailas-cloud/multiid/internal/domain/params"
)

func newTestExecutor(t *testing.T, url string) *Executor {
	t.Helper()
	e, err := NewExecutor(&Config{BaseURL: url + "/solr/biblio/"})
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	return e
}

func TestNewExecutor_RequiresBaseURL(t *testing.T) {
	if _, err := NewExecutor(&Config{BaseURL: "  "}); err == nil {
		t.Fatal("expected error for empty base url")
	}
}

func TestExecute_PostsFormToHandler(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/solr/biblio/select" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		if got := r.PostForm.Get("q"); got != `id:"1" || isbn:"1"` {
			t.Errorf("q = %q", got)
		}
		if got := r.PostForm.Get("wt"); got != "json" {
			t.Errorf("wt = %q", got)
		}
		if got := r.PostForm["fl"]; len(got) != 2 {
			t.Errorf("fl = %v", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"response":{"numFound":1,"docs":[{"id":"1"}]}}`)
	}))
	defer server.Close()

	e := newTestExecutor(t, server.URL)

	p := params.New()
	p.Set("q", `id:"1" || isbn:"1"`)
	p.Add("fl", "id")
	p.Add("fl", "title")

	res, err := e.Execute(context.Background(), "select", p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Handler != "select" {
		t.Errorf("Handler = %q", res.Handler)
	}
	if res.ContentType != "application/json" {
		t.Errorf("ContentType = %q", res.ContentType)
	}
	if string(res.Body) != `{"response":{"numFound":1,"docs":[{"id":"1"}]}}` {
		t.Errorf("Body = %s", res.Body)
	}
	if p.Has("wt") {
		t.Error("Execute must not modify the caller's bag")
	}
}

func TestExecute_KeepsExplicitWriter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if got := r.PostForm["wt"]; len(got) != 1 || got[0] != "xml" {
			t.Errorf("wt = %v", got)
		}
		_, _ = io.WriteString(w, "<response/>")
	}))
	defer server.Close()

	p := params.New()
	p.Set("wt", "xml")
	if _, err := newTestExecutor(t, server.URL).Execute(context.Background(), "/mlt/", p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExecute_BasicAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, pw, ok := r.BasicAuth()
		if !ok || u != "solr" || pw != "secret" {
			t.Errorf("basic auth = %q/%q/%v", u, pw, ok)
		}
		_, _ = io.WriteString(w, "{}")
	}))
	defer server.Close()

	e, err := NewExecutor(&Config{BaseURL: server.URL, Username: "solr", Password: "secret"})
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	if _, err := e.Execute(context.Background(), "select", params.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExecute_BackendStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"msg":"undefined field isbn","code":400}}`)
	}))
	defer server.Close()

	_, err := newTestExecutor(t, server.URL).Execute(context.Background(), "select", params.New())
	if !errors.Is(err, domain.ErrBackendStatus) {
		t.Fatalf("expected ErrBackendStatus, got %v", err)
	}
	var bse *domain.BackendStatusError
	if !errors.As(err, &bse) {
		t.Fatalf("expected *BackendStatusError, got %T", err)
	}
	if bse.Status != http.StatusBadRequest {
		t.Errorf("Status = %d", bse.Status)
	}
	if bse.Body != "undefined field isbn" {
		t.Errorf("Body = %q", bse.Body)
	}
}

func TestExecute_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestExecutor(t, url).Execute(context.Background(), "select", params.New())
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestExecute_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = io.WriteString(w, "{}")
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := newTestExecutor(t, server.URL).Execute(ctx, "select", params.New())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	status := http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/solr/biblio/admin/ping" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"status":"OK"}`)
	}))
	defer server.Close()

	e := newTestExecutor(t, server.URL)
	if err := e.HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status = http.StatusServiceUnavailable
	if err := e.HealthCheck(context.Background()); !errors.Is(err, domain.ErrBackendStatus) {
		t.Fatalf("expected ErrBackendStatus, got %v", err)
	}
}

func TestErrorMessage(t *testing.T) {
	if got := errorMessage([]byte(`{"error":{"msg":"bad"}}`)); got != "bad" {
		t.Errorf("json msg = %q", got)
	}
	if got := errorMessage([]byte("  plain text  ")); got != "plain text" {
		t.Errorf("plain = %q", got)
	}
	long := make([]byte, 2*maxErrorBody)
	for i := range long {
		long[i] = 'x'
	}
	if got := errorMessage(long); len(got) != maxErrorBody {
		t.Errorf("truncated len = %d", len(got))
	}
}
