package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// errorEnvelope mirrors the wire shape produced by writeError.
type errorEnvelope struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

func decodeErrorEnvelope(t *testing.T, w *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()

	var envelope errorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding error envelope: %v\nbody: %s", err, w.Body.String())
	}
	if envelope.Code == "" {
		t.Fatalf("error envelope has no code\nbody: %s", w.Body.String())
	}
	return envelope
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()

	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decoding response: %v\nbody: %s", err, w.Body.String())
	}
}

// jsonRequest builds a request carrying body marshaled as JSON.
func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	return httptest.NewRequest(method, target, reader)
}

// authedRequest builds a JSON request with userID already in the context,
// as the auth middleware would leave it.
func authedRequest(t *testing.T, method, target string, body any, userID uuid.UUID) *http.Request {
	t.Helper()

	r := jsonRequest(t, method, target, body)
	ctx := context.WithValue(r.Context(), ctxKeyUserID, userID)
	return r.WithContext(ctx)
}
