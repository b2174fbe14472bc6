package server

import (
	"fmt"

	"github.com/rxtech-lab/nft-marketplace/internal/hooks"
	"github.com/rxtech-lab/nft-marketplace/internal/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dependencies are the externally constructed clients the services are built on
type Dependencies struct {
	DB          *gorm.DB
	Chain       services.ChainClient
	Content     services.ContentStore
	Gas         services.GasEstimator
	Connections services.ConnectionService
	Operator    services.Operator
	Logger      *zap.Logger
}

// Services is everything the HTTP and MCP surfaces call into
type Services struct {
	Chain       services.ChainClient
	Content     services.ContentStore
	Gas         services.GasEstimator
	Connections services.ConnectionService
	Operator    services.Operator
	NFTs        services.NFTService
	Listings    services.ListingService
	Activities  services.ActivityService
	Hooks       services.HookService
	Marketplace services.MarketplaceService
	Mint        services.MintService
	Reconcile   services.ReconcileService
}

func InitializeServices(deps Dependencies) *Services {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	operator := deps.Operator
	if operator == nil {
		operator = services.NewReadOnlyOperator()
	}

	nftService := services.NewNFTService(deps.DB)
	listingService := services.NewListingService(deps.DB)
	activityService := services.NewActivityService(deps.DB)
	hookService := services.NewHookService()

	return &Services{
		Chain:       deps.Chain,
		Content:     deps.Content,
		Gas:         deps.Gas,
		Connections: deps.Connections,
		Operator:    operator,
		NFTs:        nftService,
		Listings:    listingService,
		Activities:  activityService,
		Hooks:       hookService,
		Marketplace: services.NewMarketplaceService(deps.Chain, deps.Connections, nftService, listingService, hookService, logger),
		Mint:        services.NewMintService(deps.Chain, deps.Content, deps.Connections, nftService, hookService, logger),
		Reconcile:   services.NewReconcileService(deps.Chain, nftService, listingService, activityService, logger),
	}
}

func InitializeHooks(activityService services.ActivityService) (services.Hook, services.Hook) {
	activityHook := hooks.NewActivityHook(activityService)
	priceHistoryHook := hooks.NewPriceHistoryHook(activityService)

	return activityHook, priceHistoryHook
}

func RegisterHooks(hookService services.HookService, activityHook services.Hook, priceHistoryHook services.Hook) error {
	if err := hookService.AddHook(activityHook); err != nil {
		return fmt.Errorf("failed to register activity hook: %w", err)
	}
	if err := hookService.AddHook(priceHistoryHook); err != nil {
		return fmt.Errorf("failed to register price history hook: %w", err)
	}
	return nil
}

// Initialize builds the services and registers the mirror hooks
func Initialize(deps Dependencies) (*Services, error) {
	svc := InitializeServices(deps)
	activityHook, priceHistoryHook := InitializeHooks(svc.Activities)
	if err := RegisterHooks(svc.Hooks, activityHook, priceHistoryHook); err != nil {
		return nil, err
	}
	return svc, nil
}
