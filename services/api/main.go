// Движок сообщений кабинета RentWork: диалоги, реакции, избранное,
// эфемерные статусы. Состояние живёт в локальном pebble-хранилище,
// открытые вкладки синхронизируются через WebSocket.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rentwork/internal/config"
	"github.com/rentwork/internal/handler"
	"github.com/rentwork/internal/kvstore"
	kvmemory "github.com/rentwork/internal/kvstore/memory"
	kvpebble "github.com/rentwork/internal/kvstore/pebble"
	kvredis "github.com/rentwork/internal/kvstore/redis"
	"github.com/rentwork/internal/logger"
	"github.com/rentwork/internal/middleware"
	"github.com/rentwork/internal/model"
	"github.com/rentwork/internal/notify"
	"github.com/rentwork/internal/repository"
	"github.com/rentwork/internal/ws"
)

func main() {
	logger.SetPrefix("api")
	logger.Info("starting messaging engine")
	if err := run(config.Load()); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

// run держит жизненный цикл процесса; выход через return, чтобы
// defer-закрытия хранилищ отработали и на ошибочном пути.
func run(cfg *config.Config) error {
	store, err := kvpebble.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open store %s: %w", cfg.DataDir, err)
	}
	defer store.Close()
	logger.Infof("store opened at %s", cfg.DataDir)

	session := openSessionStore(cfg.RedisURL)
	defer session.Close()

	convRepo := repository.NewConversationRepository(store)
	reactRepo := repository.NewReactionRepository(store)
	favRepo := repository.NewFavoriteRepository(store)
	statusRepo := repository.NewStatusRepository(store)

	notifier := notify.New(store, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
	if notifier.Enabled() {
		logger.Info("web push enabled")
	} else {
		logger.Info("web push disabled (no VAPID keys)")
	}

	hubCtx, hubCancel := context.WithCancel(context.Background())
	hub := ws.NewHub(convRepo, reactRepo, favRepo, statusRepo, session, cfg.MaxWSConnections, notifier)

	var hubWg sync.WaitGroup
	hubWg.Add(1)
	go func() {
		defer hubWg.Done()
		hub.Run(hubCtx)
	}()

	staged := handler.NewStagedAttachments(session, hub)
	convH := handler.NewConversationHandler(convRepo, reactRepo, favRepo, staged, hub)
	msgH := handler.NewMessageHandler(convRepo, reactRepo, favRepo, hub)
	statusH := handler.NewStatusHandler(statusRepo, hub)
	searchH := handler.NewSearchHandler(convRepo)
	pushH := handler.NewPushHandler(notifier)
	wsH := handler.NewWSHandler(hub, cfg.CORSAllowedOrigins)

	defaultActor := model.Identity{ID: cfg.Actor.ID, Name: cfg.Actor.Name, Avatar: cfg.Actor.Avatar}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RecoverJSON)
	// Не сжимать WebSocket — иначе ResponseWriter не реализует http.Hijacker и upgrade даёт 500.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if strings.EqualFold(req.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, req)
				return
			}
			chimw.Compress(5)(next).ServeHTTP(w, req)
		})
	})
	r.Use(middleware.RequestLog)
	r.Use(middleware.Identity(defaultActor))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSAllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Context-Id", "X-Actor-Id", "X-Actor-Name", "X-Actor-Avatar"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); w.Write([]byte("ok")) })
	r.Get("/api/push/vapid-public", pushH.VAPIDPublic)
	r.Post("/api/push/subscribe", pushH.Subscribe)
	r.Delete("/api/push/subscribe", pushH.Unsubscribe)

	r.Get("/api/conversations", convH.List)
	r.Get("/api/conversations/{id}", convH.Get)
	r.Post("/api/conversations/{id}/messages", convH.Send)
	r.Post("/api/conversations/{id}/read", convH.MarkRead)
	r.Put("/api/conversations/{id}/important", convH.SetImportant)
	r.Post("/api/conversations/{id}/messages/{messageID}/favorite", msgH.ToggleFavorite)

	r.Get("/api/messages/{messageID}/reactions", msgH.ListReactions)
	r.Post("/api/messages/{messageID}/reactions", msgH.AddReaction)
	r.Delete("/api/messages/{messageID}/reactions", msgH.RemoveReaction)
	r.Get("/api/favorites", msgH.ListFavorites)

	r.Get("/api/search", searchH.Advanced)

	r.Get("/api/statuses", statusH.List)
	r.Post("/api/statuses", statusH.Create)
	r.Post("/api/statuses/{id}/view", statusH.View)
	r.Get("/api/statuses/{id}/viewers", statusH.Viewers)

	r.Post("/api/attachments/staged", staged.Stage)
	r.Get("/api/attachments/staged", staged.Peek)
	r.Delete("/api/attachments/staged", staged.Discard)

	r.Get("/ws", wsH.ServeWS)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	var srvWg sync.WaitGroup
	errCh := make(chan error, 1)
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("server listening on %s", cfg.ServerAddr)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			serveErr = fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	logger.Info("server stopped accepting connections")
	hubCancel()
	hubWg.Wait()
	logger.Info("hub stopped")
	srvWg.Wait()
	logger.Info("server goroutine exited")
	return serveErr
}

// openSessionStore подключает Redis; без REDIS_URL сессионный слой
// работает в памяти с тем же TTL.
func openSessionStore(redisURL string) kvstore.Store {
	if redisURL == "" {
		logger.Info("session store: in-memory (no REDIS_URL)")
		return kvmemory.NewWithTTL(kvredis.SessionTTL)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := kvredis.New(ctx, redisURL)
	if err != nil {
		logger.Errorf("session store: redis unavailable: %v — falling back to in-memory", err)
		return kvmemory.NewWithTTL(kvredis.SessionTTL)
	}
	logger.Info("session store: redis connected")
	return client
}
