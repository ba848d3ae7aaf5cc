package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"

	"github.com/emundo/bookstock/internal/api"
	"github.com/emundo/bookstock/internal/catalog"
	"github.com/emundo/bookstock/internal/config"
	"github.com/emundo/bookstock/internal/events"
	"github.com/emundo/bookstock/internal/health"
	"github.com/emundo/bookstock/internal/httpapi"
	"github.com/emundo/bookstock/internal/movement"
	"github.com/emundo/bookstock/internal/obs"
	"github.com/emundo/bookstock/internal/queue"
	"github.com/emundo/bookstock/internal/session"
	"github.com/emundo/bookstock/internal/store"
)

// reportSource reads sales from the API and names from the cached catalog.
type reportSource struct {
	client *api.Client
	cat    *catalog.Catalog
}

func (r reportSource) ListExitDetails(ctx context.Context) ([]api.ExitDetail, error) {
	return r.client.ListExitDetails(ctx)
}

func (r reportSource) BookNames(ctx context.Context) (map[int64]string, error) {
	return r.cat.BookNames(ctx)
}

func main() {
	cfg := config.Load()
	obs.InitLogger(cfg.Env, cfg.ServiceName)
	log.Info().
		Str("http", cfg.HTTPAddr).
		Str("grpc", cfg.GRPCAddr).
		Str("api", cfg.APIBaseURL).
		Str("db", cfg.DBPath).
		Str("rabbit", cfg.RabbitURL).
		Msg("starting bookstock")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Store local
	st, err := store.Open(ctx, cfg.DBDriver, cfg.DBPath)
	must(err)
	defer st.Close()

	// API remota + sesión
	var (
		client   *api.Client
		sessions *session.Manager
	)
	login := session.Config{
		Mode:     session.Mode(cfg.LoginMode),
		TokenURL: cfg.TokenURL,
		Timeout:  cfg.LoginTimeout,
		TTL:      cfg.SessionTTL,
	}
	switch cfg.AuthMode {
	case "bearer":
		bearer := &api.BearerAuth{}
		client = api.New(cfg.APIBaseURL, api.WithAuth(bearer), api.WithTimeout(cfg.APITimeout))
		sessions = session.NewManager(client, st.Sessions(), login)
		bearer.Tokens = sessions
	default:
		jar, err := api.NewCookieAuth()
		must(err)
		client = api.New(cfg.APIBaseURL, api.WithAuth(jar), api.WithTimeout(cfg.APITimeout))
		sessions = session.NewManager(client, st.Sessions(), login)
	}

	cat, err := catalog.New(client, cfg.CacheSize)
	must(err)

	// Rabbit (opcional)
	rabbit, err := events.NewRabbit(cfg.RabbitURL, cfg.EventsExchange)
	must(err)
	defer rabbit.Close()

	opts := []movement.CoordinatorOption{
		movement.WithStockSource(cat),
		movement.WithJournal(st.Journal()),
	}
	if rabbit != nil {
		opts = append(opts, movement.WithPublisher(rabbit))
	}
	coord := movement.NewCoordinator(
		movement.NewWriter(client, cfg.DefaultBranch),
		movement.NewAdjuster(client),
		opts...,
	)

	must(rabbit.ConsumeTopic(ctx, cfg.ServiceName+".stock-cache", []string{"movement.*"}, events.StockInvalidator(cat)))

	consumer, err := queue.NewConsumer(cfg.RabbitURL, cfg.QMovementReq, cfg.QMovementRes, queue.NewWorker(coord, queue.WithHistory(st.Journal())))
	must(err)
	defer consumer.Close()
	must(consumer.Start(ctx))

	// Health por gRPC
	checker := health.NewChecker(cfg.ServiceName, client, api.ProbePaths, st)
	go checker.Loop(ctx, time.Minute)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	must(err)
	grpcSrv := grpc.NewServer()
	checker.Register(grpcSrv)
	go func() {
		if err := grpcSrv.Serve(lis); err != nil {
			log.Error().Err(err).Msg("grpc serve")
		}
	}()

	// HTTP
	srv := httpapi.New(httpapi.Deps{
		Sessions:    sessions,
		Catalog:     cat,
		Movements:   coord,
		Journal:     st.Journal(),
		Headers:     client,
		Report:      reportSource{client, cat},
		Health:      checker,
		CORSOrigins: cfg.CORSOrigins,
		Timeout:     cfg.APITimeout,
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Señales para apagado limpio
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		log.Warn().Msg("shutting down...")
		sctx, scancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer scancel()
		if err := httpSrv.Shutdown(sctx); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
		grpcSrv.GracefulStop()
		cancel()
	}()

	log.Info().Msg("HTTP listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		must(err)
	}
}

func must(err error) {
	if err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}
