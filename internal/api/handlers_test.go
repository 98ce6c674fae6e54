package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kalambet/recsd/internal/engine"
	"github.com/kalambet/recsd/internal/store"
)

const testToken = "test-token-12345"

func setupHandler(t *testing.T, token string) (http.Handler, *store.EventStore) {
	t.Helper()
	eventStore := store.New()
	handler := NewHandler(Deps{
		Store:    eventStore,
		Engine:   engine.New(eventStore),
		Token:    token,
		DefaultK: 8,
		MaxK:     50,
	})
	return handler, eventStore
}

func doRequest(h http.Handler, method, url, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func seedEvents(t *testing.T, h http.Handler) {
	t.Helper()
	body := `[
		{"userId": "u1", "productId": "p1", "eventType": "view"},
		{"userId": "u1", "productId": "p2", "eventType": "add_to_cart"},
		{"userId": "u2", "productId": "p2", "eventType": "view"},
		{"userId": "u2", "productId": "p3", "eventType": "purchase"},
		{"userId": "u3", "productId": "p3", "eventType": "view"}
	]`
	rr := doRequest(h, http.MethodPost, "/ingest/events", body, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("seed ingest status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp map[string]int
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp["received"] != 5 {
		t.Fatalf("seed received = %d, want 5", resp["received"])
	}
}

type itemsResponse struct {
	Items []engine.Recommendation `json:"items"`
}

func TestHealth(t *testing.T) {
	h, _ := setupHandler(t, "")

	rr := doRequest(h, http.MethodGet, "/health", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp map[string]bool
	json.NewDecoder(rr.Body).Decode(&resp)
	if !resp["ok"] {
		t.Errorf("body = %s, want ok=true", rr.Body.String())
	}
}

func TestIngest_FiltersInvalidRows(t *testing.T) {
	h, _ := setupHandler(t, "")

	body := `[
		{"userId": "u1", "productId": "p1", "eventType": "view"},
		{"userId": "u1", "productId": "", "eventType": "view"},
		{"userId": "", "productId": "p2", "eventType": "purchase"},
		{"userId": "u2", "productId": "p2", "eventType": "unknown"}
	]`
	rr := doRequest(h, http.MethodPost, "/ingest/events", body, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp map[string]int
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp["received"] != 1 {
		t.Errorf("received = %d, want 1", resp["received"])
	}
}

func TestIngest_NonArrayBodyCountsAsZero(t *testing.T) {
	h, _ := setupHandler(t, "")

	for _, body := range []string{`{"userId": "u1"}`, `"nope"`, `not json at all`} {
		rr := doRequest(h, http.MethodPost, "/ingest/events", body, "")
		if rr.Code != http.StatusOK {
			t.Errorf("body %q: status = %d, want 200", body, rr.Code)
		}
		var resp map[string]int
		json.NewDecoder(rr.Body).Decode(&resp)
		if resp["received"] != 0 {
			t.Errorf("body %q: received = %d, want 0", body, resp["received"])
		}
	}
}

func TestRecommendations_EmptyStoreReturnsEmptyArray(t *testing.T) {
	h, _ := setupHandler(t, "")

	rr := doRequest(h, http.MethodGet, "/recommendations", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	// items must be a JSON array, never null.
	if !strings.Contains(rr.Body.String(), `"items":[]`) {
		t.Errorf("body = %s, want empty items array", rr.Body.String())
	}
}

func TestRecommendations_ForKnownUser(t *testing.T) {
	h, _ := setupHandler(t, "")
	seedEvents(t, h)

	rr := doRequest(h, http.MethodGet, "/recommendations?userId=u1&k=3", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp itemsResponse
	json.NewDecoder(rr.Body).Decode(&resp)

	for _, it := range resp.Items {
		if it.ProductID == "p1" || it.ProductID == "p2" {
			t.Errorf("results include %s, which u1 already interacted with", it.ProductID)
		}
	}
	found := false
	for _, it := range resp.Items {
		if it.ProductID == "p3" {
			found = true
		}
	}
	if !found {
		t.Errorf("results %v missing p3", resp.Items)
	}
}

func TestRecommendations_SimilarProducts(t *testing.T) {
	h, _ := setupHandler(t, "")
	seedEvents(t, h)

	rr := doRequest(h, http.MethodGet, "/recommendations?productId=p2&k=2", "", "")
	var resp itemsResponse
	json.NewDecoder(rr.Body).Decode(&resp)

	for _, it := range resp.Items {
		if it.ProductID == "p2" {
			t.Error("results include the seed product p2")
		}
	}
	found := false
	for _, it := range resp.Items {
		if it.ProductID == "p3" {
			found = true
		}
	}
	if !found {
		t.Errorf("results %v missing p3", resp.Items)
	}
}

func TestRecommendations_ColdStart(t *testing.T) {
	h, _ := setupHandler(t, "")
	seedEvents(t, h)

	rr := doRequest(h, http.MethodGet, "/recommendations?k=2", "", "")
	var resp itemsResponse
	json.NewDecoder(rr.Body).Decode(&resp)

	if len(resp.Items) != 2 {
		t.Fatalf("len = %d, want 2", len(resp.Items))
	}
	if resp.Items[0].ProductID != "p3" {
		t.Errorf("top item = %s, want p3 (highest popularity)", resp.Items[0].ProductID)
	}
	if resp.Items[0].Score != 1.0 {
		t.Errorf("top score = %v, want 1.0", resp.Items[0].Score)
	}
}

func TestClampK(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 8},
		{"abc", 8},
		{"3", 3},
		{"0", 1},
		{"-5", 1},
		{"50", 50},
		{"500", 50},
	}
	for _, tt := range tests {
		if got := clampK(tt.raw, 8, 50); got != tt.want {
			t.Errorf("clampK(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestStats(t *testing.T) {
	h, _ := setupHandler(t, "")
	seedEvents(t, h)

	rr := doRequest(h, http.MethodGet, "/stats", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var stats store.Stats
	json.NewDecoder(rr.Body).Decode(&stats)
	if stats.Events != 5 || stats.Users != 3 || stats.Products != 3 {
		t.Errorf("stats = %+v, want 5 events / 3 users / 3 products", stats)
	}
}

func TestReset_RequiresTokenWhenConfigured(t *testing.T) {
	h, eventStore := setupHandler(t, testToken)
	seedEvents(t, h)

	rr := doRequest(h, http.MethodPost, "/admin/reset", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", rr.Code)
	}
	if len(eventStore.Snapshot()) != 5 {
		t.Fatal("store was reset despite missing token")
	}

	rr = doRequest(h, http.MethodPost, "/admin/reset", "", "wrong-token")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status with wrong token = %d, want 401", rr.Code)
	}

	rr = doRequest(h, http.MethodPost, "/admin/reset", "", testToken)
	if rr.Code != http.StatusOK {
		t.Fatalf("status with token = %d, want 200", rr.Code)
	}
	if len(eventStore.Snapshot()) != 0 {
		t.Error("store not empty after authorized reset")
	}
}

func TestReset_OpenWithoutToken(t *testing.T) {
	h, eventStore := setupHandler(t, "")
	seedEvents(t, h)

	rr := doRequest(h, http.MethodPost, "/admin/reset", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if len(eventStore.Snapshot()) != 0 {
		t.Error("store not empty after reset")
	}

	// Recommendations are empty again after reset.
	rr = doRequest(h, http.MethodGet, "/recommendations?userId=u1", "", "")
	if !strings.Contains(rr.Body.String(), `"items":[]`) {
		t.Errorf("post-reset body = %s, want empty items", rr.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := setupHandler(t, "")
	seedEvents(t, h)
	doRequest(h, http.MethodGet, "/recommendations?k=2", "", "")

	rr := doRequest(h, http.MethodGet, "/metrics", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "recsd_events_accepted_total") {
		t.Error("metrics output missing recsd_events_accepted_total")
	}
	if !strings.Contains(rr.Body.String(), "recsd_recommend_requests_total") {
		t.Error("metrics output missing recsd_recommend_requests_total")
	}
}
