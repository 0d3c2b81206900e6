package server_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hwuu/sftpproxy/internal/keyvault"
	"github.com/hwuu/sftpproxy/internal/remote"
	"github.com/hwuu/sftpproxy/internal/server"
	"github.com/hwuu/sftpproxy/internal/upload"
)

// MockUploader 记录收到的请求并返回预设结果
type MockUploader struct {
	UploadFunc func(ctx context.Context, req upload.Request) (*upload.Result, error)
	Requests   []upload.Request
}

func (m *MockUploader) Upload(ctx context.Context, req upload.Request) (*upload.Result, error) {
	m.Requests = append(m.Requests, req)
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, req)
	}
	return &upload.Result{Path: upload.DestinationPath(req.RemotePath, req.FileName)}, nil
}

func jsonBody(t *testing.T, fields map[string]any) *strings.Reader {
	t.Helper()
	b, err := json.Marshal(fields)
	if err != nil {
		t.Fatal(err)
	}
	return strings.NewReader(string(b))
}

func validFields() map[string]any {
	return map[string]any{
		"host":       "h",
		"port":       22,
		"user":       "u",
		"remotePath": "/data/in/",
		"fileName":   "x.bin",
		"fileBase64": base64.StdEncoding.EncodeToString([]byte{0, 1, 2}),
	}
}

func TestHealth(t *testing.T) {
	router := server.NewRouter(&MockUploader{}, 1024)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("GET /health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestUploadJSON_Success(t *testing.T) {
	mock := &MockUploader{}
	router := server.NewRouter(mock, 1<<20)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sftp/upload-json", jsonBody(t, validFields()))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Body.String(); got != "Uploaded to /data/in/x.bin" {
		t.Errorf("unexpected body %q", got)
	}
	if len(mock.Requests) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(mock.Requests))
	}
	got := mock.Requests[0]
	if got.Host != "h" || got.Port != 22 || got.User != "u" || string(got.Content) != "\x00\x01\x02" {
		t.Errorf("unexpected request %+v", got)
	}
}

func TestUploadJSON_DefaultPort(t *testing.T) {
	mock := &MockUploader{}
	router := server.NewRouter(mock, 1<<20)

	fields := validFields()
	delete(fields, "port")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sftp/upload-json", jsonBody(t, fields)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if mock.Requests[0].Port != 22 {
		t.Errorf("expected default port 22, got %d", mock.Requests[0].Port)
	}
}

func TestUploadJSON_BadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"bad base64", `{"host":"h","port":22,"user":"u","fileName":"a","fileBase64":"***"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockUploader{}
			router := server.NewRouter(mock, 1<<20)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sftp/upload-json", strings.NewReader(tt.body)))

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
			if len(mock.Requests) != 0 {
				t.Error("uploader must not be called")
			}
		})
	}
}

func TestUploadJSON_BodyTooLarge(t *testing.T) {
	mock := &MockUploader{}
	router := server.NewRouter(mock, 64)

	fields := validFields()
	fields["fileBase64"] = base64.StdEncoding.EncodeToString(make([]byte, 1024))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sftp/upload-json", jsonBody(t, fields)))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
	if len(mock.Requests) != 0 {
		t.Error("uploader must not be called")
	}
}

func TestUploadJSON_ErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantPrefix string
	}{
		{fmt.Errorf("%w: port 0 out of range", upload.ErrInvalidRequest), http.StatusBadRequest, "Invalid request: "},
		{fmt.Errorf("%w: rejected", remote.ErrAuthenticationFailed), http.StatusUnauthorized, "Authentication failed: "},
		{fmt.Errorf("%w: dial", remote.ErrConnectionFailed), http.StatusInternalServerError, "SFTP Connection error: "},
		{keyvault.ErrKeyUnavailable, http.StatusInternalServerError, "Encrypted key file not found: "},
		{keyvault.ErrKeyDecryptionFailed, http.StatusInternalServerError, "SFTP Error: "},
		{&remote.DirectoryError{Segment: "/data", Err: fmt.Errorf("permission denied")}, http.StatusInternalServerError, "SFTP Error: "},
		{&upload.PathError{Path: "/data/x", Err: fmt.Errorf("quota")}, http.StatusInternalServerError, "SFTP Error: "},
	}
	for _, tt := range tests {
		t.Run(upload.KindOf(tt.err).String(), func(t *testing.T) {
			mock := &MockUploader{
				UploadFunc: func(ctx context.Context, req upload.Request) (*upload.Result, error) {
					return nil, tt.err
				},
			}
			router := server.NewRouter(mock, 1<<20)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sftp/upload-json", jsonBody(t, validFields())))

			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if !strings.HasPrefix(rec.Body.String(), tt.wantPrefix) {
				t.Errorf("expected body prefix %q, got %q", tt.wantPrefix, rec.Body.String())
			}
		})
	}
}

func TestUploadJSON_MethodNotAllowed(t *testing.T) {
	router := server.NewRouter(&MockUploader{}, 1024)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sftp/upload-json", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestRun_Shutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Run(ctx, "127.0.0.1:0", server.NewRouter(&MockUploader{}, 1024))
	}()
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}
}
