package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	"github.com/ridloal/agri-traceability/internal/platform/config"
	"github.com/ridloal/agri-traceability/internal/platform/logger"
)

func newSingleHostReverseProxy(targetHost string) (*httputil.ReverseProxy, error) {
	targetURL, err := url.Parse(targetHost)
	if err != nil {
		return nil, fmt.Errorf("failed to parse target URL '%s': %w", targetHost, err)
	}

	proxy := httputil.NewSingleHostReverseProxy(targetURL)
	proxy.ErrorHandler = func(rw http.ResponseWriter, req *http.Request, err error) {
		logger.Error(fmt.Sprintf("Gateway: proxy error for %s %s to %s", req.Method, req.URL.Path, targetURL), err, nil)
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusBadGateway)
		_, _ = rw.Write([]byte(`{"message":"Service unavailable"}`))
	}
	return proxy, nil
}

// newGatewayMux routes each path prefix to its service. Paths are forwarded
// unchanged; the services mount everything under /api/v1 themselves.
func newGatewayMux(serviceMappings map[string]string) (*http.ServeMux, error) {
	mux := http.NewServeMux()
	for pathPrefix, targetHost := range serviceMappings {
		proxy, err := newSingleHostReverseProxy(targetHost)
		if err != nil {
			return nil, fmt.Errorf("failed to create reverse proxy for prefix %s: %w", pathPrefix, err)
		}
		mux.Handle(pathPrefix, proxy)
		logger.Info(fmt.Sprintf("Routing %s to %s", pathPrefix, targetHost))
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux, nil
}

func main() {
	config.LoadDotEnv()
	cfg := config.LoadGatewayConfig()
	logger.Info("Starting API Gateway on port " + cfg.ListenPort)

	// Tanpa trailing slash juga didaftarkan supaya POST /api/v1/products
	// tidak di-redirect 301 oleh ServeMux.
	serviceMappings := map[string]string{
		"/api/v1/users/":    cfg.UserServiceURL,
		"/api/v1/products":  cfg.ProductServiceURL,
		"/api/v1/products/": cfg.ProductServiceURL,
	}

	mux, err := newGatewayMux(serviceMappings)
	if err != nil {
		logger.Error("API Gateway misconfigured", err, nil)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:    ":" + cfg.ListenPort,
		Handler: mux,
	}
	go func() {
		logger.Info(fmt.Sprintf("API Gateway successfully configured and listening on :%s", cfg.ListenPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("API Gateway failed to start or crashed", err, nil)
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(context.Background(), cfg.ShutdownTimeout, map[string]gfshutdown.Operation{
		"http-server": func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
	exitCode := <-wait
	logger.Info(fmt.Sprintf("API Gateway exited with code %d", exitCode))
	os.Exit(exitCode)
}
