package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/hwuu/sftpproxy/internal/logutil"
	"github.com/hwuu/sftpproxy/internal/upload"
)

// uploadJSONRequest POST /sftp/upload-json 的请求体
type uploadJSONRequest struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	User       string `json:"user"`
	RemotePath string `json:"remotePath"`
	FileName   string `json:"fileName"`
	FileBase64 string `json:"fileBase64"`
}

type handler struct {
	uploader     Uploader
	maxBodyBytes int64
}

func (h *handler) uploadJSON(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	var body uploadJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	content, err := base64.StdEncoding.DecodeString(body.FileBase64)
	if err != nil {
		http.Error(w, "fileBase64 is not valid base64", http.StatusBadRequest)
		return
	}

	if body.Port == 0 {
		body.Port = 22
	}
	req := upload.Request{
		Host:       body.Host,
		Port:       body.Port,
		User:       body.User,
		RemotePath: body.RemotePath,
		FileName:   body.FileName,
		Content:    content,
	}

	res, err := h.uploader.Upload(r.Context(), req)
	if err != nil {
		status, msg := errorResponse(err)
		log.Printf("[server] %s upload to %s failed (%s): %v",
			middleware.GetReqID(r.Context()), logutil.SanitizeForLog(body.Host), upload.KindOf(err), err)
		http.Error(w, msg, status)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Uploaded to " + res.Path))
}

// errorResponse 把上传错误分类映射为状态码和响应文本
func errorResponse(err error) (int, string) {
	switch upload.KindOf(err) {
	case upload.KindInvalidRequest:
		return http.StatusBadRequest, "Invalid request: " + err.Error()
	case upload.KindAuthenticationFailed:
		return http.StatusUnauthorized, "Authentication failed: " + err.Error()
	case upload.KindKeyUnavailable:
		return http.StatusInternalServerError, "Encrypted key file not found: " + err.Error()
	case upload.KindConnectionFailed:
		return http.StatusInternalServerError, "SFTP Connection error: " + err.Error()
	default:
		return http.StatusInternalServerError, "SFTP Error: " + err.Error()
	}
}
