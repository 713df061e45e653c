package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	copytradeapp "github.com/wyfcoding/fractionalfunding/internal/copytrade/application"
	copytradedomain "github.com/wyfcoding/fractionalfunding/internal/copytrade/domain"
	copytrademysql "github.com/wyfcoding/fractionalfunding/internal/copytrade/infrastructure/persistence/mysql"
	copytradeconsumer "github.com/wyfcoding/fractionalfunding/internal/copytrade/interfaces/consumer"
	copytradehttp "github.com/wyfcoding/fractionalfunding/internal/copytrade/interfaces/http"
	dealapp "github.com/wyfcoding/fractionalfunding/internal/deal/application"
	dealdomain "github.com/wyfcoding/fractionalfunding/internal/deal/domain"
	dealmysql "github.com/wyfcoding/fractionalfunding/internal/deal/infrastructure/persistence/mysql"
	dealhttp "github.com/wyfcoding/fractionalfunding/internal/deal/interfaces/http"
	"github.com/wyfcoding/fractionalfunding/internal/kyc"
	ledgerapp "github.com/wyfcoding/fractionalfunding/internal/ledger/application"
	ledgerdomain "github.com/wyfcoding/fractionalfunding/internal/ledger/domain"
	ledgermsg "github.com/wyfcoding/fractionalfunding/internal/ledger/infrastructure/messaging"
	ledgermysql "github.com/wyfcoding/fractionalfunding/internal/ledger/infrastructure/persistence/mysql"
	ledgerhttp "github.com/wyfcoding/fractionalfunding/internal/ledger/interfaces/http"
	payoutapp "github.com/wyfcoding/fractionalfunding/internal/payout/application"
	payoutdomain "github.com/wyfcoding/fractionalfunding/internal/payout/domain"
	payoutadapter "github.com/wyfcoding/fractionalfunding/internal/payout/infrastructure/adapter"
	payoutmysql "github.com/wyfcoding/fractionalfunding/internal/payout/infrastructure/persistence/mysql"
	payouthttp "github.com/wyfcoding/fractionalfunding/internal/payout/interfaces/http"
	scenarioapp "github.com/wyfcoding/fractionalfunding/internal/scenario/application"
	scenariodomain "github.com/wyfcoding/fractionalfunding/internal/scenario/domain"
	scenarioadapter "github.com/wyfcoding/fractionalfunding/internal/scenario/infrastructure/adapter"
	scenariomysql "github.com/wyfcoding/fractionalfunding/internal/scenario/infrastructure/persistence/mysql"
	scenariohttp "github.com/wyfcoding/fractionalfunding/internal/scenario/interfaces/http"
	"github.com/wyfcoding/fractionalfunding/internal/wallet"
	"github.com/wyfcoding/fractionalfunding/pkg/cache"
	"github.com/wyfcoding/fractionalfunding/pkg/config"
	"github.com/wyfcoding/fractionalfunding/pkg/db"
	"github.com/wyfcoding/fractionalfunding/pkg/logger"
	"github.com/wyfcoding/fractionalfunding/pkg/metrics"
	"github.com/wyfcoding/fractionalfunding/pkg/middleware"
	"github.com/wyfcoding/fractionalfunding/pkg/mq"
)

func main() {
	configPath := flag.String("config", "configs/platform/config.toml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "starting platform service",
		"version", cfg.Version,
		"environment", cfg.Environment,
	)

	m := metrics.New(cfg.ServiceName)
	if err := m.Register(); err != nil {
		logger.Fatal(ctx, "failed to register metrics", "error", err)
	}
	if cfg.Metrics.Enabled {
		metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	database, err := db.Init(cfg.Database, m)
	if err != nil {
		logger.Fatal(ctx, "failed to init database", "error", err)
	}
	defer database.Close()

	if cfg.Environment == "dev" {
		if err := autoMigrate(database); err != nil {
			logger.Fatal(ctx, "auto migration failed", "error", err)
		}
	}

	redis, err := cache.New(cfg.Redis)
	if err != nil {
		logger.Fatal(ctx, "failed to init redis", "error", err)
	}
	defer redis.Close()

	producer, err := mq.NewProducer(cfg.Kafka)
	if err != nil {
		logger.Fatal(ctx, "failed to init kafka producer", "error", err)
	}
	defer producer.Close()

	// Repositories.
	dealRepo := dealmysql.NewDealRepository(database.DB)
	spvRepo := ledgermysql.NewSPVRepository(database.DB)
	investmentRepo := ledgermysql.NewInvestmentRepository(database.DB)
	codeSequence := ledgermysql.NewCodeSequence(database.DB)
	scheduleRepo := payoutmysql.NewScheduleRepository(database.DB)
	payoutTxRepo := payoutmysql.NewTransactionRepository(database.DB)
	runRepo := scenariomysql.NewRunRepository(database.DB)
	followingRepo := copytrademysql.NewFollowingRepository(database.DB)

	// Services.
	dealService := dealapp.NewDealService(dealRepo, database)
	ledgerService := ledgerapp.NewLedgerService(
		spvRepo,
		investmentRepo,
		codeSequence,
		kyc.NewGateway(cfg.Kyc),
		ledgermsg.NewKafkaPublisher(producer),
		database,
		m,
	)
	dealService.SetSPVFactory(ledgerService)

	payoutService := payoutapp.NewPayoutService(
		scheduleRepo,
		payoutTxRepo,
		payoutadapter.NewLedgerAdapter(ledgerService),
		wallet.NewKafkaDispatcher(producer),
		database,
		m,
	)
	scenarioService := scenarioapp.NewScenarioService(
		runRepo,
		scenarioadapter.NewLedgerAdapter(ledgerService),
		m,
	)
	copyService := copytradeapp.NewCopyTradeService(followingRepo, ledgerService, database, redis)
	replicator := copytradeapp.NewReplicator(followingRepo, ledgerService, m)
	scheduler := payoutapp.NewScheduler(
		payoutService,
		redis,
		m,
		time.Duration(cfg.Scheduler.IntervalSeconds)*time.Second,
		time.Duration(cfg.Scheduler.ClaimTTLSeconds)*time.Second,
	)

	// HTTP server.
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Logging(), middleware.Recovery(), middleware.Metrics(m))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.ServiceName})
	})

	api := router.Group("/api/v1")
	dealhttp.NewDealHandler(dealService).RegisterRoutes(api)
	ledgerhttp.NewLedgerHandler(ledgerService).RegisterRoutes(api)
	payouthttp.NewPayoutHandler(payoutService, scheduler).RegisterRoutes(api)
	scenariohttp.NewScenarioHandler(scenarioService).RegisterRoutes(api)
	copytradehttp.NewCopyTradeHandler(copyService).RegisterRoutes(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	// Consumers.
	issuedConsumer, err := mq.NewConsumer(cfg.Kafka, ledgerdomain.TopicInvestmentIssued)
	if err != nil {
		logger.Fatal(ctx, "failed to init issuance consumer", "error", err)
	}
	defer issuedConsumer.Close()
	exitedConsumer, err := mq.NewConsumer(cfg.Kafka, ledgerdomain.TopicInvestmentExited)
	if err != nil {
		logger.Fatal(ctx, "failed to init exit consumer", "error", err)
	}
	defer exitedConsumer.Close()
	dlq := mq.NewDeadLetterQueue(producer, "copytrade.replication.dlq")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info(gCtx, "http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return issuedConsumer.Run(gCtx, copytradeconsumer.NewIssuedEventHandler(replicator), dlq)
	})
	g.Go(func() error {
		return exitedConsumer.Run(gCtx, copytradeconsumer.NewExitedEventHandler(replicator), dlq)
	})

	if cfg.Scheduler.Enabled {
		g.Go(func() error {
			return scheduler.Run(gCtx)
		})
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error(ctx, "service exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info(context.Background(), "service stopped")
}

func autoMigrate(database *db.DB) error {
	if err := ledgermysql.MigrateSequenceTable(database.DB); err != nil {
		return err
	}
	return database.AutoMigrate(
		&dealdomain.Deal{},
		&ledgerdomain.SPV{},
		&ledgerdomain.Investment{},
		&payoutdomain.PayoutSchedule{},
		&payoutdomain.PayoutTransaction{},
		&payoutdomain.PayoutLine{},
		&scenariodomain.ScenarioRun{},
		&copytradedomain.CopyFollowing{},
	)
}
