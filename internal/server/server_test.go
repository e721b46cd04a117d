package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/rockybot-go/internal/knowledge"
	"github.com/54b3r/rockybot-go/internal/logging"
)

// ---------------------------------------------------------------------------
// Fake pipeline
// ---------------------------------------------------------------------------

// fakePipeline implements the pipeline interface for tests and records the
// requests it receives.
type fakePipeline struct {
	mu sync.Mutex
	// process is returned by ProcessURLs.
	process knowledge.ProcessResult
	// answer is returned by AskQuestion.
	answer knowledge.AnswerResult
	// clear is returned by ClearKnowledgeBase.
	clear knowledge.ClearResult
	// status is returned by Status.
	status knowledge.Status
	// panicOnAsk makes AskQuestion panic.
	panicOnAsk bool

	processReqs []knowledge.ProcessRequest
	askReqs     []knowledge.QuestionRequest
	clears      int
}

func (f *fakePipeline) ProcessURLs(_ context.Context, req knowledge.ProcessRequest) knowledge.ProcessResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processReqs = append(f.processReqs, req)
	return f.process
}

func (f *fakePipeline) AskQuestion(_ context.Context, req knowledge.QuestionRequest) knowledge.AnswerResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnAsk {
		panic("boom")
	}
	f.askReqs = append(f.askReqs, req)
	return f.answer
}

func (f *fakePipeline) ClearKnowledgeBase(_ context.Context) knowledge.ClearResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	return f.clear
}

func (f *fakePipeline) Status() knowledge.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// newTestServer builds a bare *Server for direct handler tests.
func newTestServer() *Server {
	return &Server{
		pipeline: &fakePipeline{},
		cfg:      &Config{},
		metrics:  newServerMetrics(prometheus.NewRegistry()),
	}
}

// newRoutedTestServer builds a fully wired Server with an isolated metrics
// registry and a silent logger.
func newRoutedTestServer(t *testing.T, p *fakePipeline, apiKey string) (*Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	s, err := New(p, &Config{
		Logger:          logging.Discard(),
		APIKey:          apiKey,
		MetricsRegistry: reg,
		MetricsGatherer: reg,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.stopRL)
	return s, reg
}

func do(t *testing.T, h http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestNew_NilPipeline(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, nil); err == nil {
		t.Fatal("expected error for nil pipeline")
	}
}

// ---------------------------------------------------------------------------
// POST /process-urls
// ---------------------------------------------------------------------------

func TestHandleProcessURLs(t *testing.T) {
	t.Parallel()

	p := &fakePipeline{process: knowledge.ProcessResult{
		Success: true, Message: "Successfully processed 2 URLs and created knowledge base with 4 documents", DocumentCount: 4,
	}}
	s, _ := newRoutedTestServer(t, p, "")

	w := do(t, s.Handler(), http.MethodPost, "/process-urls",
		`{"urls":["https://a.example","https://b.example"],"llm_provider":"OpenAI","embedding_provider":"Hugging Face (Free)"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}
	var got knowledge.ProcessResult
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != p.process {
		t.Errorf("result: expected %+v, got %+v", p.process, got)
	}
	if len(p.processReqs) != 1 {
		t.Fatalf("expected 1 process call, got %d", len(p.processReqs))
	}
	req := p.processReqs[0]
	if len(req.URLs) != 2 || req.LLMProvider != "OpenAI" || req.EmbeddingProvider != "Hugging Face (Free)" {
		t.Errorf("request not forwarded intact: %+v", req)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestHandleProcessURLs_InvalidBody(t *testing.T) {
	t.Parallel()

	p := &fakePipeline{}
	s, _ := newRoutedTestServer(t, p, "")

	w := do(t, s.Handler(), http.MethodPost, "/process-urls", `{"urls":`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var got errorResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Success || got.Message == "" {
		t.Errorf("expected {success:false, message}, got %+v", got)
	}
	if len(p.processReqs) != 0 {
		t.Error("pipeline must not be called for an invalid body")
	}
}

func TestHandleProcessURLs_FailureIsStructured(t *testing.T) {
	t.Parallel()

	p := &fakePipeline{process: knowledge.ProcessResult{Message: knowledge.MsgNoValidURL}}
	s, reg := newRoutedTestServer(t, p, "")

	w := do(t, s.Handler(), http.MethodPost, "/process-urls", `{"urls":[""]}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"success":false`) {
		t.Errorf("expected success:false in body, got %s", w.Body.String())
	}
	if v := counterValue(t, reg, "rockybot_pipeline_operations_total", map[string]string{"op": "process", "outcome": "failed"}); v != 1 {
		t.Errorf("want failed process counter=1, got %v", v)
	}
}

// ---------------------------------------------------------------------------
// POST /ask-question
// ---------------------------------------------------------------------------

func TestHandleAskQuestion(t *testing.T) {
	t.Parallel()

	p := &fakePipeline{answer: knowledge.AnswerResult{
		Success: true,
		Answer:  "Stock B fell.",
		Sources: []string{"https://news.example/b"},
		Chunks:  []string{"Stock B fell 3% due to earnings miss."},
	}}
	s, reg := newRoutedTestServer(t, p, "")

	w := do(t, s.Handler(), http.MethodPost, "/ask-question", `{"question":"Which stock fell?"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}
	var got knowledge.AnswerResult
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Answer != "Stock B fell." || len(got.Sources) != 1 || len(got.Chunks) != 1 {
		t.Errorf("unexpected result: %+v", got)
	}
	if p.askReqs[0].Question != "Which stock fell?" {
		t.Errorf("question not forwarded: %+v", p.askReqs[0])
	}
	if v := counterValue(t, reg, "rockybot_pipeline_operations_total", map[string]string{"op": "ask", "outcome": "ok"}); v != 1 {
		t.Errorf("want ok ask counter=1, got %v", v)
	}
}

func TestHandleAskQuestion_PanicRecovered(t *testing.T) {
	t.Parallel()

	p := &fakePipeline{panicOnAsk: true}
	s, _ := newRoutedTestServer(t, p, "")

	w := do(t, s.Handler(), http.MethodPost, "/ask-question", `{"question":"q"}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"success":false`) {
		t.Errorf("expected structured failure, got %s", w.Body.String())
	}
}

// ---------------------------------------------------------------------------
// POST /clear-knowledge-base and GET /api/status
// ---------------------------------------------------------------------------

func TestHandleClearKnowledgeBase(t *testing.T) {
	t.Parallel()

	p := &fakePipeline{clear: knowledge.ClearResult{Success: true, Message: knowledge.MsgCleared}}
	s, reg := newRoutedTestServer(t, p, "")

	w := do(t, s.Handler(), http.MethodPost, "/clear-knowledge-base", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), knowledge.MsgCleared) {
		t.Errorf("expected clear message, got %s", w.Body.String())
	}
	if p.clears != 1 {
		t.Errorf("expected 1 clear call, got %d", p.clears)
	}
	if v := gaugeValue(t, reg, "rockybot_knowledge_entries"); v != 0 {
		t.Errorf("want entries gauge=0, got %v", v)
	}
}

func TestHandleStatus(t *testing.T) {
	t.Parallel()

	p := &fakePipeline{status: knowledge.Status{State: knowledge.StateReady, Entries: 7, EmbeddingProvider: "huggingface/all-MiniLM-L6-v2"}}
	s, _ := newRoutedTestServer(t, p, "")

	w := do(t, s.Handler(), http.MethodGet, "/api/status", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got map[string]any
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["state"] != "READY" || got["entries"] != float64(7) {
		t.Errorf("unexpected status body: %v", got)
	}
	if _, ok := got["version"]; !ok {
		t.Error("expected version field")
	}
}

// ---------------------------------------------------------------------------
// Routing and auth
// ---------------------------------------------------------------------------

func TestRoutes_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	s, _ := newRoutedTestServer(t, &fakePipeline{}, "")

	w := do(t, s.Handler(), http.MethodGet, "/process-urls", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestRoutes_AuthProtectsPipeline(t *testing.T) {
	t.Parallel()

	p := &fakePipeline{}
	s, _ := newRoutedTestServer(t, p, "secret")
	h := s.Handler()

	if w := do(t, h, http.MethodPost, "/clear-knowledge-base", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("clear without token: expected 401, got %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/api/status", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("status without token: expected 401, got %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/api/health", ""); w.Code != http.StatusOK {
		t.Errorf("health must stay open: expected 200, got %d", w.Code)
	}
	if w := do(t, h, http.MethodPost, "/clear-knowledge-base", "", "Authorization", "Bearer secret"); w.Code != http.StatusOK {
		t.Errorf("clear with token: expected 200, got %d", w.Code)
	}
	if p.clears != 1 {
		t.Errorf("expected exactly 1 clear call, got %d", p.clears)
	}
}

func TestRoutes_Metrics(t *testing.T) {
	t.Parallel()

	s, _ := newRoutedTestServer(t, &fakePipeline{}, "")
	h := s.Handler()

	do(t, h, http.MethodGet, "/api/health", "")
	w := do(t, h, http.MethodGet, "/metrics", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `rockybot_http_requests_total{code="200",handler="GET /api/health",method="GET"} 1`) {
		t.Errorf("expected health request counter in metrics output:\n%s", w.Body.String())
	}
}

// ---------------------------------------------------------------------------
// GET / (browser UI)
// ---------------------------------------------------------------------------

func TestRoutes_IndexServesUI(t *testing.T) {
	t.Parallel()

	s, _ := newRoutedTestServer(t, &fakePipeline{}, "secret")
	h := s.Handler()

	w := do(t, h, http.MethodGet, "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected text/html, got %q", ct)
	}
	for _, route := range []string{"/process-urls", "/ask-question", "/clear-knowledge-base"} {
		if !strings.Contains(w.Body.String(), route) {
			t.Errorf("UI does not call %s", route)
		}
	}

	if w := do(t, h, http.MethodGet, "/nope", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown path: expected 404, got %d", w.Code)
	}
	if w := do(t, h, http.MethodPost, "/", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /: expected 405, got %d", w.Code)
	}
}
