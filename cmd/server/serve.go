package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/ashureev/classpulse/internal/analytics"
	"github.com/ashureev/classpulse/internal/api"
	"github.com/ashureev/classpulse/internal/broadcast"
	"github.com/ashureev/classpulse/internal/config"
	"github.com/ashureev/classpulse/internal/engagement"
	"github.com/ashureev/classpulse/internal/expression"
	"github.com/ashureev/classpulse/internal/middleware"
	"github.com/ashureev/classpulse/internal/recorder"
	"github.com/ashureev/classpulse/internal/session"
	"github.com/ashureev/classpulse/internal/store"
	"github.com/ashureev/classpulse/internal/stream"
	"github.com/ashureev/classpulse/internal/tracking"
	"github.com/ashureev/classpulse/internal/vision"
	"github.com/ashureev/classpulse/web"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return err
	}
	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "db_driver", cfg.DB.Driver)

	repo, err := store.Open(ctx, store.Options{Driver: cfg.DB.Driver, Path: cfg.DB.Path, URL: cfg.DB.URL})
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		return err
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()
	slog.Info("Database connected")

	detector, closeDetector := newDetector(cfg)
	defer closeDetector()

	profile := expression.DefaultProfile()
	if cfg.ExpressionProfile != "" {
		if profile, err = expression.LoadProfile(cfg.ExpressionProfile); err != nil {
			slog.Error("Failed to load expression profile", "path", cfg.ExpressionProfile, "error", err)
			return err
		}
		slog.Info("Expression profile loaded", "path", cfg.ExpressionProfile)
	}

	writer := recorder.NewWriter(repo, cfg.MetricsWriteInterval)
	metrics := recorder.NewAsync(writer, slog.Default())
	defer func() {
		if closeErr := metrics.Close(); closeErr != nil {
			slog.Warn("Metrics recorder did not drain", "error", closeErr)
		}
		slog.Info("Metrics recorder stopped", "stats", metrics.Stats())
	}()

	mgr := session.NewManager(session.Deps{
		Store:      repo,
		Recorder:   metrics,
		Detector:   detector,
		Classifier: expression.NewClassifier(profile),
		Tracker: vision.NewIoUTracker(vision.IoUTrackerConfig{
			NInit:  cfg.Tracker.NInit,
			MaxAge: cfg.Tracker.MaxAge,
			MinIoU: cfg.Tracker.MinIoU,
		}),
		Associator: tracking.Associator{
			MaxDistance:  cfg.Association.MaxDistance,
			MaxStaleness: cfg.Association.MaxStaleness,
		},
		RecentSamples: cfg.HistoryRecentSamples,
	})

	recovered, err := mgr.RecoverOrphans(ctx)
	if err != nil {
		slog.Error("Failed to recover orphaned sessions", "error", err)
		return err
	}
	slog.Info("Orphaned session recovery complete", "closed", recovered)

	board := engagement.NewScoreboard()
	mgr.AddListener(board)
	bus := broadcast.New[engagement.Update]()
	feed := engagement.NewFeed(board, bus)

	queue := stream.NewFrameQueue(cfg.FrameQueue)
	hub := stream.NewHub()
	wsHandler := stream.NewHandler(hub, queue, bus, stream.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		IsDevelopment:    cfg.IsDevelopment(),
		SubscriberBuffer: cfg.SubscriberBuffer,
	})

	apiHandler := api.NewHandler(api.Deps{
		Sessions:        mgr,
		Reader:          repo,
		Leaderboard:     board,
		Recommendations: feed,
		Analytics:       analytics.NewService(repo, time.Local),
	})
	healthHandler := api.NewHealthHandler(repo, 0)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	healthHandler.RegisterHealth(r)
	apiHandler.RegisterRoutes(r)
	r.Get("/ws/video", wsHandler.ServeVideo)
	r.Get("/ws/metrics", wsHandler.ServeMetrics)

	if cfg.StaticDir != "" {
		spa, err := web.DirHandler(cfg.StaticDir)
		if err != nil {
			slog.Error("Failed to serve dashboard", "dir", cfg.StaticDir, "error", err)
			return err
		}
		r.Handle("/*", spa)
		slog.Info("Serving dashboard", "dir", cfg.StaticDir)
	}

	// Websocket connections are long lived, so there is no write timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// The frame loop outlives the request context so shutdown can drain it in order.
	loopCtx, stopLoop := context.WithCancel(context.WithoutCancel(ctx))
	defer stopLoop()
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		mgr.Run(loopCtx, queue.Frames(), feed.Publish)
	}()

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		slog.Error("Server failed", "error", err)
		runErr = fmt.Errorf("serve http: %w", err)
	}

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	hub.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	stopLoop()
	<-loopDone

	// Finalize a running session so its summaries are not lost.
	if mgr.Status().Active {
		res := mgr.Stop(shutdownCtx)
		slog.Info("Active session stopped on shutdown", "session_id", res.SessionID, "fault", res.Fault)
	}
	_ = bus.Close()

	slog.Info("Server stopped successfully")
	return runErr
}

// newDetector builds the landmark detector. Without a configured command the
// server runs but never finds a face.
func newDetector(cfg *config.Config) (vision.Detector, func()) {
	if cfg.Landmark.Command == "" {
		slog.Warn("LANDMARK_COMMAND not set, face detection disabled")
		return vision.NopDetector{}, func() {}
	}

	d := vision.NewSidecarDetector(vision.SidecarConfig{
		Command: cfg.Landmark.Command,
		Args:    cfg.Landmark.Args,
		Timeout: cfg.Landmark.Timeout,
		Logger:  slog.Default(),
	})
	slog.Info("Landmark sidecar configured", "command", cfg.Landmark.Command, "args", cfg.Landmark.Args)
	return d, func() {
		served, failed := d.Stats()
		if err := d.Close(); err != nil {
			slog.Warn("Failed to stop landmark sidecar", "error", err)
		}
		slog.Info("Landmark sidecar stopped", "served", served, "failed", failed)
	}
}
