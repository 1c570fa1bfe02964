package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lehigh-university-libraries/textsnap/internal/providers"
)

func TestExtractText(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "OPEN 24 HOURS"})
	}))
	defer server.Close()

	o := New(server.URL + "/")
	text, err := o.ExtractText(context.Background(), providers.Config{
		Model:  "llava",
		Prompt: "read it",
		Image:  []byte("pixels"),
	})
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	if text != "OPEN 24 HOURS" {
		t.Errorf("Expected transcription, got %q", text)
	}
	if got["model"] != "llava" || got["stream"] != false {
		t.Errorf("Unexpected request body %v", got)
	}
	images, ok := got["images"].([]interface{})
	if !ok || len(images) != 1 || images[0] != base64.StdEncoding.EncodeToString([]byte("pixels")) {
		t.Errorf("Expected base64 image in request, got %v", got["images"])
	}
}

func TestExtractTextErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		switch req.Model {
		case "missing":
			http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	o := New(server.URL)

	_, err := o.ExtractText(context.Background(), providers.Config{Model: "missing"})
	if !errors.Is(err, providers.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable for unknown model, got %v", err)
	}

	_, err = o.ExtractText(context.Background(), providers.Config{Model: "broken"})
	if err == nil || errors.Is(err, providers.ErrUnavailable) {
		t.Errorf("Expected plain error for 500, got %v", err)
	}

	_, err = o.ExtractText(context.Background(), providers.Config{})
	if !errors.Is(err, providers.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable without model, got %v", err)
	}
}

func TestNewDefaultURL(t *testing.T) {
	if o := New(""); o.URL != DefaultURL {
		t.Errorf("Expected %s, got %s", DefaultURL, o.URL)
	}
}
