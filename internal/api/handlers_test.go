package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"wlcheck/internal/config"
	"wlcheck/internal/store"
)

const toyInstance = `Warehouses = 2;
Stores = 2;
Capacity = [10, 10];
FixedCost = [5, 7];
Goods = [4, 6];
SupplyCost = [| 1, 2
              | 3, 1 |];
Incompatibilities = 1;
IncompatiblePairs = [| 1, 2 |];
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(config.Default())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

func postValidation(t *testing.T, s *Server, tenant string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, _ := json.Marshal(body)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/validations", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if tenant != "" {
		req.Header.Set("X-Tenant-Id", tenant)
	}
	s.ValidationsHandler(rr, req)
	return rr
}

func TestHealthReady(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.HealthHandler(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != 200 {
		t.Fatalf("health: got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	s.ReadyHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != 200 {
		t.Fatalf("ready: got %d", rr.Code)
	}
}

func TestValidationCreateGetReport(t *testing.T) {
	s := newTestServer(t)
	rr := postValidation(t, s, "t_test", map[string]any{"instance": toyInstance, "solution": "[| 4, 0\n | 6, 0 |]"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: got %d %s", rr.Code, rr.Body.String())
	}
	var run store.Run
	if err := json.Unmarshal(rr.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if run.ID == "" || run.Report.Cost != 27 || run.Report.ViolationCount != 1 || run.Notation != "matrix" {
		t.Fatalf("unexpected run: %+v", run)
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/validations/"+run.ID, nil)
	req.Header.Set("X-Tenant-Id", "t_test")
	s.ValidationByIDHandler(rr, req)
	if rr.Code != 200 {
		t.Fatalf("get: got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/validations/"+run.ID+"/report", nil)
	req.Header.Set("X-Tenant-Id", "t_test")
	s.ValidationByIDHandler(rr, req)
	if rr.Code != 200 || !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("report: got %d %q", rr.Code, rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Body.String(), "Cost: 27 = 22 (supply cost) + 5 (opening cost)") {
		t.Fatalf("report text: %q", rr.Body.String())
	}

	// other tenants cannot see the run
	rr = httptest.NewRecorder()
	s.ValidationByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/validations/"+run.ID, nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("cross-tenant get: got %d", rr.Code)
	}
}

func TestValidationStructuredInstance(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{
		"instanceData": map[string]any{
			"warehouses": 1, "stores": 1,
			"capacity": []int{5}, "fixedCost": []int{3}, "goods": []int{2},
			"supplyCost": [][]int{{4}},
		},
		"solution": "{(1, 1, 2)}",
	}
	rr := postValidation(t, s, "", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: got %d %s", rr.Code, rr.Body.String())
	}
	var run store.Run
	_ = json.Unmarshal(rr.Body.Bytes(), &run)
	if run.Report.Cost != 11 || !run.Report.Feasible() || run.Notation != "list" || run.TenantID != "t_demo" {
		t.Fatalf("unexpected run: %+v", run)
	}
}

func TestValidationRejections(t *testing.T) {
	s := newTestServer(t)
	cases := []struct {
		name string
		body any
		code int
	}{
		{"both instance forms", map[string]any{"instance": toyInstance, "instanceData": map[string]any{}, "solution": "{}"}, http.StatusBadRequest},
		{"no solution", map[string]any{"instance": toyInstance}, http.StatusBadRequest},
		{"bad instance text", map[string]any{"instance": "Warehouses = ;", "solution": "{}"}, http.StatusUnprocessableEntity},
		{"store out of range", map[string]any{"instance": toyInstance, "solution": "{(3, 1, 1)}"}, http.StatusUnprocessableEntity},
		{"exceeds demand", map[string]any{"instance": toyInstance, "solution": "{(1, 1, 3), (1, 2, 2)}"}, http.StatusUnprocessableEntity},
		{"short matrix", map[string]any{"instance": toyInstance, "solution": "[| 1, 0 |]"}, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		rr := postValidation(t, s, "", tc.body)
		if rr.Code != tc.code {
			t.Errorf("%s: got %d want %d (%s)", tc.name, rr.Code, tc.code, rr.Body.String())
		}
	}

	rr := httptest.NewRecorder()
	s.ValidationsHandler(rr, httptest.NewRequest(http.MethodPost, "/v1/validations", strings.NewReader("{")))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid json: got %d", rr.Code)
	}
	items, _, _ := s.Store.ListRuns(context.Background(), "t_demo", "", 0)
	if len(items) != 0 {
		t.Fatalf("rejected inputs must not be stored: %+v", items)
	}
}

func TestValidationListPaging(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 3; i++ {
		if rr := postValidation(t, s, "t_page", map[string]any{"instance": toyInstance, "solution": "{(1, 1, 4)}"}); rr.Code != http.StatusCreated {
			t.Fatalf("create %d: %d", i, rr.Code)
		}
	}
	var page struct {
		Items      []store.Run `json:"items"`
		NextCursor string      `json:"nextCursor"`
	}
	req := httptest.NewRequest(http.MethodGet, "/v1/validations?limit=2", nil)
	req.Header.Set("X-Tenant-Id", "t_page")
	rr := httptest.NewRecorder()
	s.ValidationsHandler(rr, req)
	_ = json.Unmarshal(rr.Body.Bytes(), &page)
	if rr.Code != 200 || len(page.Items) != 2 || page.NextCursor == "" {
		t.Fatalf("page 1: %d %+v", rr.Code, page)
	}
	req = httptest.NewRequest(http.MethodGet, "/v1/validations?limit=2&cursor="+page.NextCursor, nil)
	req.Header.Set("X-Tenant-Id", "t_page")
	rr = httptest.NewRecorder()
	s.ValidationsHandler(rr, req)
	page.Items, page.NextCursor = nil, ""
	_ = json.Unmarshal(rr.Body.Bytes(), &page)
	if len(page.Items) != 1 || page.NextCursor != "" {
		t.Fatalf("page 2: %+v", page)
	}
}

func TestValidationListUnknownCursor(t *testing.T) {
	s := newTestServer(t)
	rr := postValidation(t, s, "t_a", map[string]any{"instance": toyInstance, "solution": "{(1, 1, 4)}"})
	var run store.Run
	_ = json.Unmarshal(rr.Body.Bytes(), &run)

	req := httptest.NewRequest(http.MethodGet, "/v1/validations?cursor="+run.ID, nil)
	req.Header.Set("X-Tenant-Id", "t_b")
	rr = httptest.NewRecorder()
	s.ValidationsHandler(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("foreign cursor: got %d", rr.Code)
	}
}

func TestValidationBodyTooLarge(t *testing.T) {
	cfg := config.Default()
	cfg.MaxBodyBytes = 64
	s, err := NewServer(cfg)
	if err != nil {
		t.Fatal(err)
	}
	rr := postValidation(t, s, "", map[string]any{"instance": toyInstance, "solution": "{(1, 1, 4)}"})
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("got %d %s", rr.Code, rr.Body.String())
	}
	var p Problem
	if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil || p.Status != http.StatusRequestEntityTooLarge {
		t.Fatalf("problem body: %+v %v", p, err)
	}
}

func TestValidationRateLimited(t *testing.T) {
	s := newTestServer(t)
	s.Limiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	body := map[string]any{"instance": toyInstance, "solution": "{(1, 1, 4)}"}
	if rr := postValidation(t, s, "", body); rr.Code != http.StatusCreated {
		t.Fatalf("first: %d", rr.Code)
	}
	rr := postValidation(t, s, "", body)
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("second: %d", rr.Code)
	}
}

func TestValidationEnqueuesWebhooks(t *testing.T) {
	cfg := config.Default()
	cfg.Webhooks.URLs = []string{"http://hooks.invalid/a"}
	cfg.Webhooks.Secret = "s3"
	s, err := NewServer(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if rr := postValidation(t, s, "t_hook", map[string]any{"instance": toyInstance, "solution": "{(1, 1, 4)}"}); rr.Code != http.StatusCreated {
		t.Fatalf("create: %d", rr.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/webhook-deliveries?status=pending", nil)
	req.Header.Set("X-Tenant-Id", "t_hook")
	rr := httptest.NewRecorder()
	s.WebhookDeliveriesHandler(rr, req)
	var out struct {
		Items []struct {
			EventType string `json:"eventType"`
			URL       string `json:"url"`
		} `json:"items"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &out)
	if len(out.Items) != 1 || out.Items[0].EventType != EventValidationCompleted || out.Items[0].URL != "http://hooks.invalid/a" {
		t.Fatalf("deliveries: %s", rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "s3") {
		t.Fatal("secret leaked in listing")
	}
}

func TestEventsWebSocket(t *testing.T) {
	s := newTestServer(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/validations", s.ValidationsHandler)
	mux.HandleFunc("/v1/validations/events", s.EventsWSHandler)
	ts := httptest.NewServer(Instrument(mux))
	defer ts.Close()

	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_ws")
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/v1/validations/events", hdr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg struct {
		Type    string `json:"type"`
		Payload Event  `json:"payload"`
	}
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != "connection_ack" {
		t.Fatalf("ack: %+v %v", msg, err)
	}

	b, _ := json.Marshal(map[string]any{"instance": toyInstance, "solution": "[| 4, 0\n | 6, 0 |]"})
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/v1/validations", bytes.NewReader(b))
	req.Header.Set("X-Tenant-Id", "t_ws")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("post status %d", resp.StatusCode)
	}

	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if msg.Type != "next" || msg.Payload.Type != EventValidationCompleted {
		t.Fatalf("event: %+v", msg)
	}
	if msg.Payload.Data["cost"] != float64(27) || msg.Payload.Data["feasible"] != false {
		t.Fatalf("event data: %+v", msg.Payload.Data)
	}
}

func TestRouteLabel(t *testing.T) {
	cases := map[string]string{
		"/v1/validations":            "/v1/validations",
		"/v1/validations/events":     "/v1/validations/events",
		"/v1/validations/abc":        "/v1/validations/{id}",
		"/v1/validations/abc/report": "/v1/validations/{id}/report",
		"/nope":                      "other",
	}
	for in, want := range cases {
		if got := routeLabel(in); got != want {
			t.Errorf("routeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
