package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGzipMiddlewareRequestBody(t *testing.T) {
	payload := []byte(`{"order_id":"CMD-1"}`)

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(payload); err != nil {
		t.Fatalf("compress payload: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	handler := GzipMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if !bytes.Equal(body, payload) {
			t.Fatalf("body = %q, want %q", body, payload)
		}
	}))

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestGzipMiddlewareMalformedBody(t *testing.T) {
	handler := GzipMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not be reached")
	}))

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("pas du gzip"))
	req.Header.Set("Content-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGzipMiddlewareResponse(t *testing.T) {
	body := []byte(`{"points":520}`)
	handler := GzipMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))

	t.Run("client accepts gzip", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Header().Get("Content-Encoding") != "gzip" {
			t.Fatalf("Content-Encoding = %q, want gzip", rec.Header().Get("Content-Encoding"))
		}

		gr, err := gzip.NewReader(rec.Body)
		if err != nil {
			t.Fatalf("new reader: %v", err)
		}
		defer gr.Close()
		got, err := io.ReadAll(gr)
		if err != nil {
			t.Fatalf("read response: %v", err)
		}
		if !bytes.Equal(got, body) {
			t.Fatalf("body = %q, want %q", got, body)
		}
	})

	t.Run("client without gzip", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Header().Get("Content-Encoding") != "" {
			t.Fatalf("response must not be compressed")
		}
		if !bytes.Equal(rec.Body.Bytes(), body) {
			t.Fatalf("body = %q, want %q", rec.Body.Bytes(), body)
		}
	})
}
