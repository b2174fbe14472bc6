package server

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/go-co-op/gocron/v2"
	"github.com/rxtech-lab/nft-marketplace/internal/config"
	"github.com/rxtech-lab/nft-marketplace/internal/services"
	"github.com/rxtech-lab/nft-marketplace/internal/utils"
	"go.uber.org/zap"
)

// Runtime owns the long-lived clients behind Services
type Runtime struct {
	Services  *Services
	DB        services.DBService
	Scheduler gocron.Scheduler

	client *ethclient.Client
	logger *zap.Logger
}

// OpenDatabase uses Postgres when a URL is configured and SQLite otherwise
func OpenDatabase(cfg *config.Config) (services.DBService, error) {
	if cfg.PostgresURL != "" {
		return services.NewPostgresDBService(cfg.PostgresURL)
	}
	return services.NewSqliteDBService(cfg.SqlitePath)
}

// Bootstrap dials the RPC node, opens the mirror and wires every service.
// The reconcile scheduler is created but not started.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dbService, err := OpenDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		dbService.Close()
		return nil, fmt.Errorf("failed to connect to rpc: %w", err)
	}
	if rpcChainID, err := client.ChainID(ctx); err != nil {
		logger.Warn("could not read chain id from rpc", zap.Error(err))
	} else if rpcChainID.Cmp(cfg.ChainIDBig()) != 0 {
		logger.Warn("rpc chain id differs from configured chain id",
			zap.String("rpc_chain_id", rpcChainID.String()),
			zap.Int64("chain_id", cfg.ChainID),
		)
	}

	rt := &Runtime{DB: dbService, client: client, logger: logger}

	chain, err := services.NewChainClient(client, cfg.Marketplace(), cfg.NFTContract(), cfg.ChainIDBig(), logger)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to bind contracts: %w", err)
	}
	gas, err := services.NewGasEstimator(client, cfg.Marketplace(), cfg.NFTContract(), cfg.GasEstimateTimeout, logger)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to initialize gas estimator: %w", err)
	}
	content := services.NewPinataContentStore(services.PinataOptions{
		APIURL:    cfg.Pinata.APIURL,
		APIKey:    cfg.Pinata.APIKey,
		SecretKey: cfg.Pinata.SecretKey,
		Gateways:  cfg.IPFSGateways,
	}, logger)

	connections := services.NewConnectionService(cfg.ChainIDBig())
	var operator services.Operator
	if cfg.HasSigner() {
		signer, address, err := utils.NewKeyedSigner(cfg.PrivateKey, cfg.ChainIDBig())
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to load operator key: %w", err)
		}
		operator = services.NewKeyedOperator(signer, connections)
		logger.Info("operator wallet loaded", zap.String("address", address.Hex()))
	} else {
		logger.Info("no operator key configured, trading and minting are disabled")
	}

	svc, err := Initialize(Dependencies{
		DB:          dbService.GetDB(),
		Chain:       chain,
		Content:     content,
		Gas:         gas,
		Connections: connections,
		Operator:    operator,
		Logger:      logger,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Services = svc

	if cfg.ReconcileInterval > 0 {
		scheduler, err := services.NewReconcileScheduler(svc.Reconcile, cfg.ReconcileInterval, logger)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to create reconcile scheduler: %w", err)
		}
		rt.Scheduler = scheduler
	}

	return rt, nil
}

// Start begins background jobs
func (r *Runtime) Start() {
	if r.Scheduler != nil {
		r.Scheduler.Start()
		r.logger.Info("listing reconciliation scheduled")
	}
}

func (r *Runtime) Close() error {
	if r.Scheduler != nil {
		if err := r.Scheduler.Shutdown(); err != nil {
			r.logger.Warn("failed to stop reconcile scheduler", zap.Error(err))
		}
	}
	if r.client != nil {
		r.client.Close()
	}
	if r.DB != nil {
		return r.DB.Close()
	}
	return nil
}
