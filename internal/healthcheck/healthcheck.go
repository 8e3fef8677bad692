package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// NormalizeListen accepts a bare port as shorthand for ":port". An empty
// value stays empty, meaning the health server is disabled.
func NormalizeListen(listen string) string {
	listen = strings.TrimSpace(listen)
	if listen == "" {
		return ""
	}
	if !strings.Contains(listen, ":") {
		return ":" + listen
	}
	return listen
}

// StartServer binds the liveness endpoint and serves it in the
// background. The returned server's Addr holds the bound address; the
// caller shuts it down on exit.
func StartServer(ctx context.Context, logger *slog.Logger, listen string, mode string) (*http.Server, error) {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "mode": mode})
	})

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			if logger != nil {
				logger.Warn("health_server_error", "error", err.Error())
			}
		}
	}()
	if logger != nil {
		logger.Info("health_server_started", "addr", srv.Addr, "mode", mode)
	}
	return srv, nil
}
