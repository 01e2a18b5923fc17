package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerateContent(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/test-model:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "key" {
			t.Errorf("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":" 🚶 Great "},{"text":"week! "}]}}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key", "test-model", 0)
	text, err := client.GenerateContent(context.Background(), "be nice", []Content{
		{Role: "user", Parts: []Part{{Text: "hi"}}},
	})
	if err != nil {
		t.Fatalf("GenerateContent failed: %v", err)
	}
	if text != "🚶 Great week!" {
		t.Errorf("text = %q", text)
	}
	if got.SystemInstruction == nil || got.SystemInstruction.Parts[0].Text != "be nice" {
		t.Errorf("system instruction not sent: %+v", got.SystemInstruction)
	}
	if len(got.Contents) != 1 || got.Contents[0].Role != "user" {
		t.Errorf("unexpected contents: %+v", got.Contents)
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"boom"}`},
		{name: "no candidates", status: http.StatusOK, body: `{"candidates":[]}`, wantErr: ErrEmptyResponse},
		{name: "bad json", status: http.StatusOK, body: `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "key", "", 0).Generate(context.Background(), "hi")
			if err == nil {
				t.Fatal("Expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
