package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pixelmorph/internal/config"
)

func testServer() *Server {
	cfg := &config.Config{
		Limits: config.DefaultLimits(),
		Render: config.DefaultRender(),
		Server: config.Server{Addr: ":0", MaxUploadSize: 1 << 20},
	}
	return New(cfg, slog.Default(), nil, nil)
}

func multipartRequest(t *testing.T, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	mw.Close()
	req := httptest.NewRequest("POST", "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandleHealth(t *testing.T) {
	s := testServer()
	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestParamsFromFormDefaults(t *testing.T) {
	s := testServer()
	req := multipartRequest(t, nil)
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("parse form: %v", err)
	}

	p, err := s.paramsFromForm(req)
	if err != nil {
		t.Fatalf("empty form should yield defaults, got %v", err)
	}
	if p != s.cfg.Render.Params() {
		t.Fatalf("got %+v, want configured defaults %+v", p, s.cfg.Render.Params())
	}
}

func TestParamsFromFormOverridesAndValidates(t *testing.T) {
	s := testServer()
	req := multipartRequest(t, map[string]string{
		"size": "64", "fps": "24", "duration": "2.5", "scale": "4", "seed": "7", "format": "gif",
	})
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("parse form: %v", err)
	}

	p, err := s.paramsFromForm(req)
	if err != nil {
		t.Fatalf("valid overrides rejected: %v", err)
	}
	if p.Size != 64 || p.FPS != 24 || p.Duration != 2.5 || p.Scale != 4 || p.Seed != 7 || p.Format != "gif" {
		t.Fatalf("overrides not applied: %+v", p)
	}
}

func TestParamsFromFormRejectsBadValues(t *testing.T) {
	s := testServer()
	cases := []map[string]string{
		{"size": "abc"},
		{"size": "9999"},   // out of range
		{"fps": "0"},       // below minimum
		{"duration": "-1"}, // below minimum
		{"format": "webm"}, // unsupported
		{"seed": "x"},
	}
	for _, fields := range cases {
		req := multipartRequest(t, fields)
		if err := req.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if _, err := s.paramsFromForm(req); err == nil {
			t.Fatalf("fields %v should be rejected", fields)
		}
	}
}

func TestHandleResultRejectsUnknownKind(t *testing.T) {
	s := testServer()
	router := s.Router()

	// The kind check happens after the job lookup, so use the route
	// table directly with a store-less server for the 404 path.
	req := httptest.NewRequest("GET", "/result/nope/animation", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing job: status %d, want 404", rec.Code)
	}
}

func TestNewJobIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := newJobID()
		if id == "" || seen[id] {
			t.Fatalf("duplicate or empty job id %q", id)
		}
		seen[id] = true
	}
	if strings.ContainsAny(newJobID(), "/\\ ") {
		t.Fatalf("job id must be path-safe")
	}
}
