package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blitz-trivia-service/internal/app"
	"blitz-trivia-service/internal/chain"
	"blitz-trivia-service/internal/config"
	"blitz-trivia-service/internal/domain"
	"blitz-trivia-service/internal/infra/memory"
	pgstore "blitz-trivia-service/internal/infra/postgres"
	redisstore "blitz-trivia-service/internal/infra/redis"
	"blitz-trivia-service/internal/logger"
	transport "blitz-trivia-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// stores groups the persistence backends picked from config.
type stores struct {
	catalog     app.CatalogStore
	questions   app.QuestionSource
	ledger      app.LedgerStore
	leaderboard app.LeaderboardRepository
	locks       app.Locker
	closers     []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores prefers Postgres for the catalog and ledger, Redis for the
// leaderboard, question cache and locks, and falls back to memory for each.
func openStores(ctx context.Context, cfg config.Config, log *logger.Logger) (*stores, error) {
	s := &stores{}
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		s.closers = append(s.closers, func() { _ = redisClient.Close() })
	}

	var bunDB *bun.DB
	if cfg.Postgres.URL != "" {
		db, err := openBunDB(cfg)
		if err != nil {
			s.close()
			return nil, err
		}
		bunDB = db
		s.closers = append(s.closers, func() { _ = db.Close() })
		if err := runMigrations(ctx, bunDB, log); err != nil {
			s.close()
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			s.close()
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		s.catalog = pgstore.NewCatalogStore(pool)
		s.ledger = pgstore.NewLedgerStore(bunDB)
		log.Info("using postgres for catalog and pending claims")
	} else {
		s.catalog = memory.NewCatalogStore()
	}

	if redisClient != nil {
		s.questions = redisstore.NewQuestionCache(redisClient, s.catalog, config.TTLDuration(cfg.Redis.TTL, quizTTL))
		s.leaderboard = redisstore.NewLeaderboardStore(redisClient)
		lease := config.TTLDuration(cfg.Minter.Timeout, 2*time.Minute) + 30*time.Second
		s.locks = redisstore.NewLocker(redisClient, lease, 5*time.Second)
		if s.ledger == nil {
			s.ledger = redisstore.NewLedgerStore(redisClient)
		}
		log.Info("using redis for leaderboard, question cache and locks")
	} else {
		s.questions = memory.NewQuestionCache(s.catalog, quizTTL)
		s.leaderboard = memory.NewLeaderboardStore()
		s.locks = app.NewKeyedMutex()
	}
	if s.ledger == nil {
		s.ledger = memory.NewLedgerStore()
	}
	return s, nil
}

func newMinter(ctx context.Context, cfg config.Config, log *logger.Logger) (app.Minter, func(), error) {
	if cfg.Minter.PrivateKey == "" {
		log.Warn("MINTER_PRIVATE_KEY not set, mints are logged only")
		return chain.NewDryRunMinter(log), func() {}, nil
	}
	if cfg.Minter.Decimals < domain.TokenDecimals {
		return nil, nil, fmt.Errorf("minter.decimals %d cannot represent %d-decimal reward amounts", cfg.Minter.Decimals, domain.TokenDecimals)
	}
	m, err := chain.NewContractMinter(ctx, chain.Config{
		RPCURL:     cfg.Minter.RPCURL,
		Contract:   cfg.Minter.Contract,
		PrivateKey: cfg.Minter.PrivateKey,
		Decimals:   cfg.Minter.Decimals,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	return m, m.Close, nil
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	rewardCfg, err := app.ParseRewardConfig(cfg.Rewards.CorrectAnswer, cfg.Rewards.StreakBonus, cfg.Rewards.Participation, cfg.Rewards.StreakInterval)
	if err != nil {
		return err
	}
	mintTimeout := config.TTLDuration(cfg.Minter.Timeout, 2*time.Minute)
	distCfg, err := app.ParseDistributorConfig(cfg.Distribution.Mode, cfg.Distribution.Fractions, mintTimeout)
	if err != nil {
		return err
	}
	initialStatus := domain.QuizStatus(cfg.Quiz.InitialStatus)
	if !initialStatus.Valid() {
		return fmt.Errorf("quiz.initial_status %q is not a valid status", cfg.Quiz.InitialStatus)
	}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	minter, closeMinter, err := newMinter(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeMinter()

	catalog := app.NewQuizCatalog(st.catalog, st.questions, st.locks, initialStatus, log)
	session := app.NewQuizSession(st.catalog, st.questions, st.locks, log)
	ledger := app.NewPendingClaimLedger(st.ledger, minter, st.locks, mintTimeout, log)
	board := app.NewLeaderboard(st.leaderboard)
	distributor := app.NewRewardDistributor(st.catalog, ledger, minter, st.locks, distCfg, log)
	results := app.NewGameResults(app.NewRewardCalculator(rewardCfg), ledger, board, log)

	if cfg.Quiz.SeedSamples {
		if err := seedSamples(ctx, catalog, log); err != nil {
			return err
		}
	}

	handler := transport.NewRouter(
		transport.NewQuizHandler(catalog, session, distributor, log),
		transport.NewLeaderboardHandler(board, ledger, log),
		transport.NewGameResultHandler(results, log),
		transport.NewWSHandler(session, log),
		log,
		transport.RouterOptions{
			CORSOrigins:    cfg.Server.CORSOrigins,
			RateLimit:      cfg.Server.RateLimit.Requests,
			RateWindow:     config.TTLDuration(cfg.Server.RateLimit.Window, time.Minute),
			TrustedProxies: cfg.Server.TrustedProxies,
		},
	)

	// mints can block until the receipt lands, so writes get the mint budget on top
	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      mintTimeout + 15*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting blitz trivia service", "port", finalPort, "payout", distCfg.Mode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	case err := <-errCh:
		log.Error("server failed", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
