// Package app wires the chat bridge together: configuration, durable
// stores, moderation, the bridge itself and the HTTP server in front of it.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/VenB304/fabric-simple-webchat/internal/api"
	"github.com/VenB304/fabric-simple-webchat/internal/auth"
	"github.com/VenB304/fabric-simple-webchat/internal/bridge"
	"github.com/VenB304/fabric-simple-webchat/internal/config"
	"github.com/VenB304/fabric-simple-webchat/internal/game"
	"github.com/VenB304/fabric-simple-webchat/internal/history"
	"github.com/VenB304/fabric-simple-webchat/internal/metrics"
	"github.com/VenB304/fabric-simple-webchat/internal/moderation"
	"github.com/VenB304/fabric-simple-webchat/internal/storage"
	"github.com/VenB304/fabric-simple-webchat/internal/websocket"
)

// maintenanceInterval paces the periodic sweep of expired sessions and
// stale rate-limit entries.
const maintenanceInterval = 10 * time.Minute

// Application owns every long-lived component and their lifecycle.
type Application struct {
	cfg      *config.Config
	queue    *storage.Queue
	sessions *auth.SessionStore
	bans     *moderation.BanSet
	limiter  *moderation.RateLimiter
	chat     *bridge.Bridge

	httpServer *http.Server
	stopMaint  chan struct{}
}

// New builds the application around the given game sink. Initialization
// order follows the dependency chain: persistence queue, stores, limiter,
// history, bridge, transport, HTTP server.
func New(cfg *config.Config, sink game.Sink) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	queue := storage.NewQueue(64)
	sessions := auth.NewSessionStore(filepath.Join(cfg.DataDir, "sessions.json"), queue)
	bans := moderation.NewBanSet(filepath.Join(cfg.DataDir, "bans.json"), queue)
	limiter := moderation.NewRateLimiter(cfg.RateLimitMessagesPerMinute, cfg.OTPCooldown())
	hist := history.NewLog(cfg.MaxHistoryMessages, cfg.MessageRetention())
	otp := auth.NewOTPAuthority()
	registry := bridge.NewRegistry()
	stats := metrics.NewCollector()

	chat := bridge.New(cfg, registry, hist, limiter, bans, sessions, otp, sink, stats)
	wsHandler := websocket.NewHandler(chat, stats, cfg.TrustProxy)

	mux := http.NewServeMux()
	mux.HandleFunc("/chat", wsHandler.HandleWebSocket)
	mux.Handle("/metrics", stats.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.AdminToken != "" {
		mux.Handle("/api/", api.NewServer(cfg.AdminToken, bans, sessions, hist, registry))
	}
	// Operator assets (favicon, sounds) live next to the persisted state.
	mux.Handle("/custom/", http.StripPrefix("/custom/", http.FileServer(http.Dir(cfg.DataDir))))
	if cfg.WebRoot != "" {
		mux.Handle("/", http.FileServer(http.Dir(cfg.WebRoot)))
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.WebPort),
		Handler: mux,
		// Only the header read is bounded; WebSocket connections are
		// hijacked and carry their own idle timeout.
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Application{
		cfg:        cfg,
		queue:      queue,
		sessions:   sessions,
		bans:       bans,
		limiter:    limiter,
		chat:       chat,
		httpServer: httpServer,
		stopMaint:  make(chan struct{}),
	}, nil
}

// Bridge exposes the chat bridge so the host can wire game events into it.
func (app *Application) Bridge() *bridge.Bridge {
	return app.chat
}

// Bans exposes the ban set for admin tooling.
func (app *Application) Bans() *moderation.BanSet {
	return app.bans
}

// Start launches the HTTP server and the maintenance loop. It returns once
// the listener is up or the startup failed.
func (app *Application) Start(ctx context.Context) error {
	log.Printf("app: starting web chat on %s (auth mode %s)", app.httpServer.Addr, app.cfg.AuthMode)

	go app.maintenanceLoop()

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(100 * time.Millisecond):
		log.Printf("app: web chat server started")
		return nil
	}
}

// Stop shuts everything down in reverse order: listener, maintenance loop,
// then the persistence queue so pending writes flush before exit.
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("app: shutting down")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("app: http shutdown error: %v", err)
	}

	select {
	case <-app.stopMaint:
	default:
		close(app.stopMaint)
	}

	app.queue.Close()

	log.Printf("app: shutdown complete")
	return nil
}

func (app *Application) maintenanceLoop() {
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			app.sessions.Cleanup()
			app.limiter.Sweep()
		case <-app.stopMaint:
			return
		}
	}
}
