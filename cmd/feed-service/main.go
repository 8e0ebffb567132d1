package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	health "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/pribylovaa/go-shortvideo-feed/internal/cache"
	"github.com/pribylovaa/go-shortvideo-feed/internal/config"
	"github.com/pribylovaa/go-shortvideo-feed/internal/metrics"
	"github.com/pribylovaa/go-shortvideo-feed/internal/reconciler"
	"github.com/pribylovaa/go-shortvideo-feed/internal/seed"
	"github.com/pribylovaa/go-shortvideo-feed/internal/service"
	"github.com/pribylovaa/go-shortvideo-feed/internal/storage/minio"
	feedhttp "github.com/pribylovaa/go-shortvideo-feed/internal/transport/http"
	"github.com/pribylovaa/go-shortvideo-feed/pkg/interceptors"
	"github.com/pribylovaa/go-shortvideo-feed/pkg/log"
)

// Константы окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file (overrides CONFIG_PATH env)")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	lg := setupLogger(cfg.Env)
	slog.SetDefault(lg)
	lg.Info("starting feed-service", "env", cfg.Env, "storage", cfg.Storage.Driver)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	dbCtx, dbCancel := context.WithTimeout(rootCtx, 30*time.Second)
	st, err := openStorage(dbCtx, cfg)
	dbCancel()
	if err != nil {
		lg.Error("storage_open_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	lg.Info("storage_opened", slog.String("driver", cfg.Storage.Driver))

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := st.Close(closeCtx); cerr != nil {
			lg.Warn("storage_close_failed", slog.String("err", cerr.Error()))
		}
	}()

	if cfg.Seed.Enabled {
		seedCtx, seedCancel := context.WithTimeout(log.Into(rootCtx, lg), 30*time.Second)
		err := seed.Apply(seedCtx, st)
		seedCancel()
		if err != nil {
			lg.Error("seed_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	svc := service.New(st)
	svc.SetRecorder(m)

	if cfg.Redis.URL != "" {
		rCtx, rCancel := context.WithTimeout(rootCtx, 10*time.Second)
		pc, err := cache.NewRedisCache(rCtx, cfg.Redis.URL, cfg.Redis.Prefix, cfg.Redis.TTL)
		rCancel()
		if err != nil {
			lg.Error("redis_connect_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer pc.Close()

		svc.SetProfileCache(pc)
		lg.Info("redis_connected")
	}

	if cfg.S3.Enabled() {
		s3Ctx, s3Cancel := context.WithTimeout(rootCtx, 10*time.Second)
		avatars, err := minio.New(s3Ctx, cfg.S3, cfg.Avatar)
		s3Cancel()
		if err != nil {
			lg.Error("minio_connect_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}

		svc.SetAvatars(avatars)
		lg.Info("minio_connected")
	}
	lg.Info("service_initialized")

	if cfg.Reconciler.Interval > 0 {
		rec := reconciler.New(svc, cfg.Reconciler.Interval, m)
		go func() {
			if err := rec.Run(log.Into(rootCtx, lg)); err != nil {
				lg.Error("reconciler_failed", slog.String("err", err.Error()))
			}
		}()
	}

	var ready int32 // 0 — not ready; 1 — ready

	// ops: livez/healthz/metrics.
	opsMux := http.NewServeMux()
	opsMux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	opsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&ready) != 1 {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		if p, ok := st.(pinger); ok {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	opsMux.Handle("/metrics", promhttp.Handler())

	opsSrv := &http.Server{
		Addr:              cfg.Ops.Addr(),
		Handler:           opsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	apiSrv := &http.Server{
		Addr: cfg.HTTP.Addr(),
		Handler: feedhttp.NewRouter(svc, feedhttp.Options{
			Logger:   lg,
			Timeout:  cfg.Timeouts.Request,
			BasePath: cfg.API.BasePath,
			Metrics:  m,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpc_prometheus.EnableHandlingTimeHistogram()

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptors.UnaryLogging(lg),
			interceptors.Recover(lg),
			interceptors.WithTimeout(cfg.Timeouts.Request),
			grpc_prometheus.UnaryServerInterceptor,
		),
		grpc.ChainStreamInterceptor(
			grpc_prometheus.StreamServerInterceptor,
		),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)

	if cfg.Env == envLocal || cfg.Env == envDev {
		reflection.Register(grpcServer)
	}
	grpc_prometheus.Register(grpcServer)

	serveErrCh := make(chan error, 3)

	for _, srv := range []*http.Server{opsSrv, apiSrv} {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			lg.Error("http_listen_failed", slog.String("addr", srv.Addr), slog.String("err", err.Error()))
			os.Exit(1)
		}
		lg.Info("http_listen_start", slog.String("addr", srv.Addr))

		go func(srv *http.Server, ln net.Listener) {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErrCh <- err
			}
		}(srv, ln)
	}

	grpcAddr := cfg.GRPC.Addr()
	grpcLis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		lg.Error("grpc_listen_failed", slog.String("addr", grpcAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}
	lg.Info("grpc_listen_start", slog.String("addr", grpcAddr))

	go func() {
		if err := grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErrCh <- err
		}
	}()

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	atomic.StoreInt32(&ready, 1)
	lg.Info("feed_service_ready")

	select {
	case <-rootCtx.Done():
		lg.Info("shutdown_requested")
	case err := <-serveErrCh:
		lg.Error("serve_failed", slog.String("err", err.Error()))
	}

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	atomic.StoreInt32(&ready, 0)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		lg.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		lg.Info("http_stopped")
	}

	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		lg.Info("grpc_stopped")
	case <-shutdownCtx.Done():
		lg.Warn("grpc_force_stop")
		grpcServer.Stop()
	}

	_ = opsSrv.Shutdown(shutdownCtx)

	lg.Info("service_stopped")
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
