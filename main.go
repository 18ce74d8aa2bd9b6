package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/matt-wisdom/WhoDat/ai"
	"github.com/matt-wisdom/WhoDat/auth"
	"github.com/matt-wisdom/WhoDat/content"
	"github.com/matt-wisdom/WhoDat/crypto"
	"github.com/matt-wisdom/WhoDat/game"
	"github.com/matt-wisdom/WhoDat/logger"
	"github.com/matt-wisdom/WhoDat/migrations"
	"github.com/matt-wisdom/WhoDat/realtime"
	"github.com/matt-wisdom/WhoDat/storage"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownGrace = 10 * time.Second

// CreateServer builds the router. Routes registered by open are reachable
// from any origin; everything added afterwards requires an allowed Origin.
func CreateServer(allowedOrigins []string, open func(gin.IRoutes)) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.SetTrustedProxies([]string{"127.0.0.1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})
	r.GET("/health", func(ctx *gin.Context) { ctx.String(http.StatusOK, "healthy") })
	if open != nil {
		open(r)
	}

	r.Use(func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")

		if slices.Contains(allowedOrigins, origin) {
			ctx.Next()
			return
		}
		ctx.String(http.StatusForbidden, "forbidden origin")
		ctx.Abort()
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Authorization",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}))

	return r
}

// store is what both repos provide: rooms, history and the article cache.
type store interface {
	game.RoomStore
	content.ArticleCache
}

func openStore(ctx context.Context, cfg *Config) (store, func(), error) {
	if cfg.postgresURL == "" {
		log.Warn().Msg("no postgres url, rooms are kept in memory")
		return storage.NewMemoryRepo(), func() {}, nil
	}
	if err := migrations.Migrate(ctx, cfg.postgresURL); err != nil {
		return nil, nil, err
	}
	pg, err := storage.NewPostgresRepo(ctx, cfg.postgresURL)
	if err != nil {
		return nil, nil, err
	}
	return pg, pg.Close, nil
}

func serve(ctx context.Context, cfg *Config) error {
	if err := logger.Init(cfg.logLevel, cfg.logPretty); err != nil {
		return err
	}
	if !cfg.logPretty {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	model := ai.NewClient(cfg.aiAPIKey, cfg.aiAPIURL, cfg.aiModel)
	if !model.IsAvailable() {
		log.Warn().Msg("no ai api key, bots and guesses use fallbacks")
	}

	gameCfg := game.DefaultConfig()
	gameCfg.AIThinkDelay = cfg.aiThinkDelay
	gameCfg.CollaboratorTimeout = cfg.collaboratorTimeout
	gameCfg.LobbyTTL = cfg.lobbyTTL
	gameCfg.ReapInterval = cfg.reapInterval

	svc := game.NewService(game.Dependencies{
		Store:   repo,
		Content: content.NewSupplier(cfg.wikiURL, repo),
		Judge:   model,
		Oracle:  model,
		Mover:   model,
	}, gameCfg)
	defer svc.Close()

	hub := realtime.NewHub(svc)
	svc.Subscribe(hub)
	go svc.RunReaper(ctx)
	go hub.RunPinger(ctx, cfg.pingInterval)

	sessions := auth.NewSessionHandler(crypto.NewJWTManager(cfg.jwtKey, cfg.sessionTTL), cfg.sessionTTL, cfg.secureCookies)
	handler := realtime.NewHandler(hub, cfg.publicURL)

	r := CreateServer(cfg.allowedOrigins, handler.RegisterPublic)
	sessions.Register(r)
	{
		play := r.Group("/")
		play.Use(sessions.RequireSessionMiddleware(2 * time.Second))
		handler.Register(play)
	}

	srv := &http.Server{
		Addr:              cfg.addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", releaseVersion).Msg("server started")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	hub.CloseAll()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("reading .env")
	}

	cfg := &Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}
