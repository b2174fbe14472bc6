package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rxtech-lab/nft-marketplace/internal/models"
	"github.com/rxtech-lab/nft-marketplace/internal/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const reconcilePageSize = 100

// ReconcileReport describes what was corrected for one nft
type ReconcileReport struct {
	NFTID          string               `json:"nft_id"`
	TokenID        string               `json:"token_id"`
	ChainOwner     string               `json:"chain_owner"`
	PreviousOwner  string               `json:"previous_owner,omitempty"`
	OwnerUpdated   bool                 `json:"owner_updated"`
	ClosedListing  *string              `json:"closed_listing,omitempty"`
	ClosedAs       models.ListingStatus `json:"closed_as,omitempty"`
	OnChainListing *OnChainListing      `json:"on_chain_listing,omitempty"`
	// Untracked is set when the chain has an active listing the mirror does not know about
	Untracked bool `json:"untracked"`
	// PriceDrift is set when both sides list for the same seller at different prices
	PriceDrift bool `json:"price_drift"`
}

// Changed reports whether the mirror was modified
func (r *ReconcileReport) Changed() bool {
	return r.OwnerUpdated || r.ClosedListing != nil
}

// ReconcileService re-reads chain state and corrects mirror drift. It only
// reads from the chain and never submits transactions.
type ReconcileService interface {
	ReconcileNFT(ctx context.Context, nftID string) (*ReconcileReport, error)
	// ReconcileActiveListings checks every nft that has an active mirror listing
	ReconcileActiveListings(ctx context.Context) ([]ReconcileReport, error)
}

type reconcileService struct {
	chain      ChainClient
	nfts       NFTService
	listings   ListingService
	activities ActivityService
	logger     *zap.Logger
}

func NewReconcileService(chain ChainClient, nfts NFTService, listings ListingService, activities ActivityService, logger *zap.Logger) ReconcileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &reconcileService{
		chain:      chain,
		nfts:       nfts,
		listings:   listings,
		activities: activities,
		logger:     logger.Named("reconcile"),
	}
}

func (s *reconcileService) ReconcileNFT(ctx context.Context, nftID string) (*ReconcileReport, error) {
	nft, err := s.nfts.GetNFTByID(nftID)
	if err != nil {
		return nil, err
	}
	tokenID, err := utils.ParseTokenID(nft.TokenID)
	if err != nil {
		return nil, err
	}

	owner, err := s.chain.OwnerOf(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to read owner of token %s: %w", nft.TokenID, err)
	}
	onChain, err := s.chain.GetListingFromContract(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to read listing of token %s: %w", nft.TokenID, err)
	}

	chainOwner := utils.NormalizeAddress(owner.Hex())
	report := &ReconcileReport{
		NFTID:          nft.ID,
		TokenID:        nft.TokenID,
		ChainOwner:     chainOwner,
		OnChainListing: onChain,
	}

	active, err := s.listings.GetActiveListing(nft.ID)
	if err != nil && !errors.Is(err, ErrListingNotFound) {
		return nil, err
	}

	switch {
	case active != nil && (onChain == nil || !sameWallet(onChain.Seller, active.SellerWallet)):
		status := models.ListingStatusCancelled
		if !sameWallet(chainOwner, active.SellerWallet) {
			status = models.ListingStatusSold
		}
		if err := s.listings.CloseListing(active.ID, status); err != nil && !errors.Is(err, ErrListingNotActive) {
			return nil, err
		}
		report.ClosedListing = &active.ID
		report.ClosedAs = status
	case active != nil && !samePrice(onChain.PriceEth, active.PriceEth):
		report.PriceDrift = true
		s.logger.Warn("mirror listing price differs from the chain",
			zap.String("nft_id", nft.ID),
			zap.String("listing_id", active.ID),
			zap.String("mirror_price_eth", active.PriceEth),
			zap.String("chain_price_eth", onChain.PriceEth),
		)
	case active == nil && onChain != nil:
		report.Untracked = true
		s.logger.Warn("chain has a listing the mirror does not track",
			zap.String("nft_id", nft.ID),
			zap.String("token_id", nft.TokenID),
			zap.String("seller", onChain.Seller),
			zap.String("price_eth", onChain.PriceEth),
		)
	}

	if !sameWallet(chainOwner, nft.OwnerWallet) {
		if err := s.nfts.UpdateOwner(nft.ID, chainOwner); err != nil {
			return nil, err
		}
		report.PreviousOwner = nft.OwnerWallet
		report.OwnerUpdated = true

		previous := nft.OwnerWallet
		err := s.activities.AppendActivity(&models.ActivityFeed{
			NFTID:        nft.ID,
			ActivityType: models.ActivityTypeTransfer,
			FromWallet:   &previous,
			ToWallet:     &chainOwner,
			Metadata:     models.JSON{"source": "reconcile", "token_id": nft.TokenID},
		})
		if err != nil {
			return nil, err
		}
	}

	if report.Changed() {
		s.logger.Info("mirror reconciled",
			zap.String("nft_id", nft.ID),
			zap.Bool("owner_updated", report.OwnerUpdated),
			zap.String("closed_as", string(report.ClosedAs)),
		)
	}
	return report, nil
}

func (s *reconcileService) ReconcileActiveListings(ctx context.Context) ([]ReconcileReport, error) {
	// collect first, closing listings shifts the pages
	var nftIDs []string
	for offset := 0; ; offset += reconcilePageSize {
		page, err := s.listings.ListActiveListings(reconcilePageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, listing := range page {
			nftIDs = append(nftIDs, listing.NFTID)
		}
		if len(page) < reconcilePageSize {
			break
		}
	}

	var reports []ReconcileReport
	var errs []error
	for _, nftID := range nftIDs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		report, err := s.ReconcileNFT(ctx, nftID)
		if err != nil {
			errs = append(errs, fmt.Errorf("nft %s: %w", nftID, err))
			continue
		}
		reports = append(reports, *report)
	}
	return reports, errors.Join(errs...)
}

// NewReconcileScheduler returns a stopped scheduler that reconciles active
// listings every interval. Overlapping runs are skipped.
func NewReconcileScheduler(service ReconcileService, interval time.Duration, logger *zap.Logger) (gocron.Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("reconcile interval must be positive, got %s", interval)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()

			reports, err := service.ReconcileActiveListings(ctx)
			changed := 0
			for i := range reports {
				if reports[i].Changed() {
					changed++
				}
			}
			if err != nil {
				logger.Error("reconcile run finished with errors", zap.Int("checked", len(reports)), zap.Error(err))
				return
			}
			logger.Info("reconcile run finished", zap.Int("checked", len(reports)), zap.Int("changed", changed))
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, fmt.Errorf("failed to schedule reconcile job: %w", err)
	}
	return scheduler, nil
}

func samePrice(a, b string) bool {
	x, errX := decimal.NewFromString(a)
	y, errY := decimal.NewFromString(b)
	if errX != nil || errY != nil {
		return a == b
	}
	return x.Equal(y)
}

func sameWallet(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
