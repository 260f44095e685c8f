package kit_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/karaobingo/stagepass/internal/kit"
)

func TestJSONHelpers(t *testing.T) {
	rec := httptest.NewRecorder()
	kit.JSON(rec, 201, map[string]int{"id": 7})
	if rec.Code != 201 {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["id"] != 7 {
		t.Errorf("body = %s err = %v", rec.Body.String(), err)
	}
}

func TestErrorBodyShape(t *testing.T) {
	rec := httptest.NewRecorder()
	kit.Error(rec, 404, "event not found")

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	// The flat shape is what the redemption client parses.
	if body["error"] != "event not found" {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestServerRoutesAndCORS(t *testing.T) {
	s := kit.NewServer(&kit.Config{Name: "test"})
	s.Router.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		kit.JSON(w, 200, map[string]string{"pong": "ok"})
	})
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/ping")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS origin = %q", got)
	}

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/ping", nil)
	pre, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	pre.Body.Close()
	if pre.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d", pre.StatusCode)
	}
}
