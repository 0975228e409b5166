package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/formdraft/internal/testutils"
	httpadapter "github.com/aretw0/formdraft/pkg/adapters/http"
	"github.com/aretw0/formdraft/pkg/adapters/memory"
	"github.com/aretw0/formdraft/pkg/domain"
	"github.com/aretw0/formdraft/pkg/draft"
	"github.com/aretw0/formdraft/pkg/observability"
	"github.com/aretw0/formdraft/pkg/schema"
	"github.com/aretw0/formdraft/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T, opts ...session.Option) (http.Handler, *draft.Store) {
	t.Helper()
	reg, err := schema.NewRegistry(testutils.CourseForm())
	require.NoError(t, err)

	promReg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(promReg)
	store := draft.New(memory.NewStore(), draft.WithLifecycleHooks(metrics.Hooks()))
	opts = append(opts, session.WithControllerOptions())
	mgr := session.NewManager(reg, store, opts...)

	h := httpadapter.NewHandler(mgr,
		httpadapter.WithMetricsHandler(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})),
		httpadapter.WithCORS(true),
	)
	return h, store
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	h, _ := newHandler(t)

	w := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	do(t, h, http.MethodPut, "/forms/add_course/draft", `{"values":{"title":"Go"}}`)
	w = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "formdraft_saves_total 1")
}

func TestForms(t *testing.T) {
	h, _ := newHandler(t)

	w := do(t, h, http.MethodGet, "/forms", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":"add_course","title":"Add course","steps":3}]`, w.Body.String())

	w = do(t, h, http.MethodGet, "/forms/add_course", "")
	require.Equal(t, http.StatusOK, w.Code)
	form := decode[domain.Form](t, w)
	assert.Equal(t, 3, form.TotalSteps())

	w = do(t, h, http.MethodGet, "/forms/add_product", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDraftLifecycle(t *testing.T) {
	h, store := newHandler(t)
	ctx := context.Background()

	w := do(t, h, http.MethodGet, "/forms/add_course/draft", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"form_id":"add_course","step":1,"values":{}}`, w.Body.String())

	w = do(t, h, http.MethodPut, "/forms/add_course/draft", `{"values":{"title":"Go","cover":"c.png"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"form_id":"add_course","step":1,"values":{"title":"Go"}}`, w.Body.String())

	w = do(t, h, http.MethodDelete, "/forms/add_course/draft", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, store.Load(ctx, "add_course"))
}

func TestNextBlockedAnswers422(t *testing.T) {
	h, store := newHandler(t)

	w := do(t, h, http.MethodPost, "/forms/add_course/next", `{"values":{"category":"design"}}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"step":1,"errors":{"title":"Title is required"}}`, w.Body.String())

	assert.Equal(t, "design", store.Load(context.Background(), "add_course")["category"])
}

func TestNextBackSubmit(t *testing.T) {
	h, store := newHandler(t)
	ctx := context.Background()

	w := do(t, h, http.MethodPost, "/forms/add_course/next", `{"values":{"title":"Go","category":"design"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"step":2}`, w.Body.String())

	w = do(t, h, http.MethodPost, "/forms/add_course/back", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"step":1}`, w.Body.String())

	// Submitting with a missing step 2 sends the user there
	w = do(t, h, http.MethodPost, "/forms/add_course/submit", "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	res := decode[map[string]any](t, w)
	assert.Equal(t, 2.0, res["step"])
	assert.Equal(t, 2, store.LoadStep(ctx, "add_course"))

	values, err := json.Marshal(map[string]any{"values": testutils.CourseValues()})
	require.NoError(t, err)
	w = do(t, h, http.MethodPost, "/forms/add_course/submit", string(values))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"step":1,"submitted":true}`, w.Body.String())
	assert.Empty(t, store.Load(ctx, "add_course"))
}

func TestSubmitFailureAnswers502(t *testing.T) {
	h, store := newHandler(t, session.WithSubmitter(func(ctx context.Context, values domain.Draft) error {
		return errors.New("catalog unavailable")
	}))

	values, err := json.Marshal(map[string]any{"values": testutils.CourseValues()})
	require.NoError(t, err)
	w := do(t, h, http.MethodPost, "/forms/add_course/submit", string(values))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotEmpty(t, store.Load(context.Background(), "add_course"))
}

func TestBadRequests(t *testing.T) {
	h, _ := newHandler(t)

	w := do(t, h, http.MethodPut, "/forms/add_course/draft", `{"values":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/forms/add_product/next", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodOptions, "/forms", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSubscribeEvents(t *testing.T) {
	h, _ := newHandler(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/forms/add_course/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())

	put, err := http.NewRequest(http.MethodPut, srv.URL+"/forms/add_course/draft", strings.NewReader(`{"values":{"title":"Go"}}`))
	require.NoError(t, err)
	putResp, err := http.DefaultClient.Do(put)
	require.NoError(t, err)
	putResp.Body.Close()

	for lines.Scan() {
		if strings.HasPrefix(lines.Text(), "data: {") {
			assert.Contains(t, lines.Text(), `"title":"Go"`)
			return
		}
	}
	t.Fatal("no draft update received")
}
