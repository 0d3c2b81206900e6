// Package server 提供 HTTP 入口：把 JSON 请求转换为一次上传，并把错误分类映射为状态码。
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hwuu/sftpproxy/internal/upload"
)

const shutdownTimeout = 10 * time.Second

// Uploader 执行一次上传，*upload.Uploader 实现该接口
type Uploader interface {
	Upload(ctx context.Context, req upload.Request) (*upload.Result, error)
}

// NewRouter 注册所有路由。maxBodyBytes 限制单个请求体大小（含 base64 膨胀）
func NewRouter(up Uploader, maxBodyBytes int64) http.Handler {
	h := &handler{uploader: up, maxBodyBytes: maxBodyBytes}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/sftp", func(r chi.Router) {
		r.Post("/upload-json", h.uploadJSON)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}

// Run 在 addr 上提供服务，ctx 取消后优雅退出
func Run(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("[server] shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Println("[server] stopped")
	return nil
}
