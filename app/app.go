// Package app wires the gold client together and serves its presentation api.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/egaotan/solana-gold/address"
	"github.com/egaotan/solana-gold/backend"
	"github.com/egaotan/solana-gold/cluster"
	"github.com/egaotan/solana-gold/config"
	"github.com/egaotan/solana-gold/gold"
	"github.com/egaotan/solana-gold/metrics"
	"github.com/egaotan/solana-gold/notify"
	"github.com/egaotan/solana-gold/session"
	"github.com/egaotan/solana-gold/statesync"
	"github.com/egaotan/solana-gold/store"
	"github.com/egaotan/solana-gold/submit"
	"github.com/egaotan/solana-gold/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
)

type App struct {
	ctx          context.Context
	logger       zerolog.Logger
	config       *config.Config
	backend      *backend.Backend
	program      *gold.Program
	orchestrator *Orchestrator
	wallet       wallet.Wallet
	watcher      *statesync.Watcher
	store        *store.Store
	notifier     *notify.Notifier
	metrics      *metrics.Metrics
	httpServer   *http.Server
}

func NewApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	app := &App{
		ctx:     ctx,
		logger:  logger.With().Str("component", config.AppLog).Logger(),
		config:  cfg,
		metrics: metrics.NewMetrics(metrics.DefaultNamespace),
	}
	params, err := cfg.Protocol()
	if err != nil {
		return nil, err
	}
	engine, err := address.NewEngine(params)
	if err != nil {
		return nil, err
	}
	app.program = gold.NewProgram(engine)

	app.backend, err = backend.NewBackend(cfg.UsableNodes(), logger)
	if err != nil {
		return nil, err
	}
	if cfg.NetStatus && len(app.backend.Nodes()) > 1 {
		app.preferFastest()
	}

	if cfg.Key != "" {
		app.wallet, err = wallet.FromBase58(cfg.Key, app.backend, logger)
	} else if cfg.KeypairFile != "" {
		app.wallet, err = wallet.FromFile(cfg.KeypairFile, app.backend, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}

	sync := statesync.NewSynchronizer(app.backend, engine, logger)
	sessions := session.NewManager(cluster.Name(cfg.Cluster))
	submitter := submit.NewClient(cfg.ConfirmTimeout(), logger)
	app.orchestrator = NewOrchestrator(app.program, submitter, sync, sessions, logger)
	app.orchestrator.Metrics = app.metrics

	if cfg.DBDriver != "" {
		dsn := cfg.DBUrl
		if cfg.DBDriver == store.DriverMysql {
			dsn = store.MysqlDSN(cfg.DBUrl, cfg.DBScheme, cfg.DBUser, cfg.DBPasswd)
		}
		db, err := store.Open(cfg.DBDriver, dsn)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		dao, err := store.NewDao(db)
		if err != nil {
			return nil, fmt.Errorf("migrate journal: %w", err)
		}
		app.store = store.NewStore(ctx, dao, logger)
		app.orchestrator.Journal = app.store
	}
	if cfg.DingUrl != "" {
		app.notifier = notify.NewNotifier(ctx, notify.NewDingSdk(cfg.DingUrl), logger)
		app.orchestrator.Notifier = app.notifier
	}
	if cfg.Watch {
		app.watcher = statesync.NewWatcher(ctx, sync, app.backend, sessions.ActiveAddress, cfg.RefreshInterval(), logger)
	}
	return app, nil
}

func (app *App) preferFastest() {
	nodes := app.backend.Nodes()
	endpoints := make([]cluster.Endpoint, 0, len(nodes))
	for _, node := range nodes {
		endpoints = append(endpoints, cluster.Endpoint{Rpc: node.Rpc, Ws: node.Ws})
	}
	index, rtt := cluster.NewDetector(cluster.NewPinger(), app.logger).Detect(endpoints)
	app.logger.Info().Str("rpc", nodes[index].Rpc).Dur("rtt", rtt).Msg("fastest node")
	app.backend.Prefer(index)
}

func (app *App) Orchestrator() *Orchestrator {
	return app.orchestrator
}

// SetApprover installs a confirmation hook on a keypair wallet.
func (app *App) SetApprover(approve wallet.Approver) {
	if k, ok := app.wallet.(*wallet.Keypair); ok {
		k.SetApprover(approve)
	}
}

func (app *App) Program() *gold.Program {
	return app.program
}

// Connect opens a session for the configured wallet, if any, and loads the
// snapshots either way.
func (app *App) Connect(ctx context.Context) error {
	if app.wallet == nil {
		err := app.orchestrator.Synchronizer().InitialLoad(ctx, solana.PublicKey{})
		app.metrics.ObserveRefresh("initial", err)
		return nil
	}
	_, err := app.orchestrator.Connect(ctx, app.wallet)
	return err
}

func (app *App) Service() {
	if err := app.Start(); err != nil {
		app.logger.Error().Err(err).Msg("start")
		return
	}
	app.StartRPC()
	<-app.ctx.Done()
	app.StopRPC()
	app.Stop()
}

func (app *App) Start() error {
	if app.store != nil {
		app.store.Start()
	}
	if app.notifier != nil {
		app.notifier.Start()
	}
	if err := app.Connect(app.ctx); err != nil {
		return err
	}
	if app.watcher != nil {
		app.watcher.Start()
	}
	app.logger.Info().Msg("gold client has started......")
	return nil
}

// Stop expects the app context to be cancelled already.
func (app *App) Stop() {
	if app.watcher != nil {
		app.watcher.Stop()
	}
	app.orchestrator.Disconnect()
	app.backend.Stop()
	if app.notifier != nil {
		app.notifier.Stop()
	}
	if app.store != nil {
		app.store.Stop()
	}
	app.logger.Info().Msg("gold client has stopped......")
}

func (app *App) StartRPC() {
	app.httpServer = &http.Server{
		Addr:    app.config.Listen,
		Handler: app.Router(),
	}
	app.logger.Info().Str("listen", app.config.Listen).Msg("start rpc server......")
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.logger.Error().Err(err).Msg("ListenAndServe")
		}
	}()
}

func (app *App) StopRPC() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.httpServer.Shutdown(ctx); err != nil {
		app.logger.Error().Err(err).Msg("rpc server shutdown")
	}
	app.logger.Info().Msg("rpc server has stopped......")
}
