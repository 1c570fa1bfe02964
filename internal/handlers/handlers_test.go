package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/textsnap/internal/imaging"
	"github.com/lehigh-university-libraries/textsnap/internal/images"
	"github.com/lehigh-university-libraries/textsnap/internal/models"
	"github.com/lehigh-university-libraries/textsnap/internal/pipeline"
	"github.com/lehigh-university-libraries/textsnap/internal/storage"
)

type recognizerFunc func(ctx context.Context, img *models.NormalizedImage) models.RecognitionResult

func (f recognizerFunc) Recognize(ctx context.Context, img *models.NormalizedImage) models.RecognitionResult {
	return f(ctx, img)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 40, 20))); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func newTestServer(t *testing.T, camera images.Source) (*httptest.Server, *storage.Manager) {
	t.Helper()
	assets, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("storage.New failed: %v", err)
	}
	p, err := pipeline.New(assets, imaging.NewNormalizer(0, 0), recognizerFunc(func(ctx context.Context, img *models.NormalizedImage) models.RecognitionResult {
		return models.Success("OPEN 9-5")
	}))
	if err != nil {
		t.Fatalf("pipeline.New failed: %v", err)
	}
	t.Cleanup(p.Close)

	mux := http.NewServeMux()
	New(p, camera).Routes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, assets
}

func decodeResponse(t *testing.T, resp *http.Response) requestResponse {
	t.Helper()
	defer resp.Body.Close()
	var out requestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func multipartBody(t *testing.T, field, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, name)
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &body, mw.FormDataContentType()
}

func TestFileUpload(t *testing.T) {
	srv, assets := newTestServer(t, nil)

	body, contentType := multipartBody(t, "file", "sign.png", pngBytes(t))
	resp, err := http.Post(srv.URL+"/api/requests?wait=5s", contentType, body)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	out := decodeResponse(t, resp)
	if out.State.Phase != models.PhaseCompleted || out.State.Result == nil || out.State.Result.Text != "OPEN 9-5" {
		t.Errorf("Unexpected state %+v", out.State)
	}
	if out.State.Width != 40 || out.State.Height != 20 {
		t.Errorf("Expected 40x20, got %dx%d", out.State.Width, out.State.Height)
	}
	if assets.ActiveCount() != 0 {
		t.Errorf("Expected uploads to be released, got %d", assets.ActiveCount())
	}
}

func TestURLUpload(t *testing.T) {
	data := pngBytes(t)
	imgSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}))
	defer imgSrv.Close()

	srv, _ := newTestServer(t, nil)
	payload := `{"image_url":"` + imgSrv.URL + `/sign.png"}`
	resp, err := http.Post(srv.URL+"/api/requests?wait=5s", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	out := decodeResponse(t, resp)
	if out.State.Result == nil || out.State.Result.Text != "OPEN 9-5" {
		t.Errorf("Unexpected state %+v", out.State)
	}
	if out.State.Origin != models.OriginGallery {
		t.Errorf("Expected gallery origin, got %s", out.State.Origin)
	}
}

func TestUploadRejections(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		want        int
	}{
		{name: "wrong method", method: "GET", want: http.StatusMethodNotAllowed},
		{name: "invalid json", method: "POST", contentType: "application/json", body: "{", want: http.StatusBadRequest},
		{name: "missing url", method: "POST", contentType: "application/json", body: "{}", want: http.StatusBadRequest},
		{name: "non http url", method: "POST", contentType: "application/json", body: `{"image_url":"file:///etc/passwd"}`, want: http.StatusBadRequest},
		{name: "missing file", method: "POST", contentType: "multipart/form-data; boundary=x", body: "--x--\r\n", want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+"/api/requests", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("NewRequest failed: %v", err)
			}
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestFileTooLarge(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	body, contentType := multipartBody(t, "file", "huge.png", make([]byte, images.MaxDownloadBytes+10))
	resp, err := http.Post(srv.URL+"/api/requests", contentType, body)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413, got %d", resp.StatusCode)
	}
}

func TestCamera(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		resp, err := http.Post(srv.URL+"/api/requests/camera", "", nil)
		if err != nil {
			t.Fatalf("POST failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotImplemented {
			t.Errorf("Expected 501, got %d", resp.StatusCode)
		}
	})

	t.Run("permission denied", func(t *testing.T) {
		srv, assets := newTestServer(t, images.NewCamera(nil, images.StaticPermission(false)))
		resp, err := http.Post(srv.URL+"/api/requests/camera?wait=5s", "", nil)
		if err != nil {
			t.Fatalf("POST failed: %v", err)
		}
		out := decodeResponse(t, resp)
		if out.State.Result == nil || out.State.Result.Kind != models.PermissionDenied {
			t.Errorf("Expected permission denied, got %+v", out.State.Result)
		}
		if out.State.Origin != models.OriginCamera {
			t.Errorf("Expected camera origin, got %s", out.State.Origin)
		}
		if assets.ActiveCount() != 0 {
			t.Errorf("Expected no temp assets, got %d", assets.ActiveCount())
		}
	})
}

func TestStateResetRetry(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/state")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	var state models.RequestState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	resp.Body.Close()
	if state.Phase != models.PhaseIdle {
		t.Errorf("Expected idle, got %s", state.Phase)
	}

	resp, err = http.Post(srv.URL+"/api/retry", "", nil)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 with nothing to retry, got %d", resp.StatusCode)
	}

	body, contentType := multipartBody(t, "file", "sign.png", pngBytes(t))
	resp, err = http.Post(srv.URL+"/api/requests?wait=5s", contentType, body)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	first := decodeResponse(t, resp)

	resp, err = http.Post(srv.URL+"/api/retry?wait=5s", "", nil)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	retried := decodeResponse(t, resp)
	if retried.Generation <= first.Generation {
		t.Errorf("Expected retry to issue a new generation, got %d after %d", retried.Generation, first.Generation)
	}
	if retried.State.Result == nil || retried.State.Result.Text != "OPEN 9-5" {
		t.Errorf("Unexpected retry state %+v", retried.State)
	}

	resp, err = http.Get(srv.URL + "/api/state?generation=" + jsonNumber(retried.Generation) + "&wait=1s")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	state = models.RequestState{}
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	resp.Body.Close()
	if state.Phase != models.PhaseCompleted {
		t.Errorf("Expected completed, got %s", state.Phase)
	}

	resp, err = http.Post(srv.URL+"/api/reset", "", nil)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	state = models.RequestState{}
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	resp.Body.Close()
	if state.Phase != models.PhaseIdle || state.Result != nil {
		t.Errorf("Expected clean idle state after reset, got %+v", state)
	}
}

func TestHealthcheck(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/healthcheck")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestParseWait(t *testing.T) {
	tests := []struct {
		query   string
		want    string
		wantErr bool
	}{
		{query: "", want: "0s"},
		{query: "wait=3s", want: "3s"},
		{query: "wait=2", want: "2s"},
		{query: "wait=1h", want: MaxWait.String()},
		{query: "wait=later", wantErr: true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/api/state?"+tt.query, nil)
		got, err := parseWait(r)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseWait(%q) error = %v", tt.query, err)
			continue
		}
		if !tt.wantErr && got.String() != tt.want {
			t.Errorf("parseWait(%q) = %s, want %s", tt.query, got, tt.want)
		}
	}
}

func jsonNumber(n uint64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
