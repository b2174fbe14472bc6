package services_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/rxtech-lab/nft-marketplace/internal/hooks"
	"github.com/rxtech-lab/nft-marketplace/internal/models"
	"github.com/rxtech-lab/nft-marketplace/internal/services"
	"github.com/rxtech-lab/nft-marketplace/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type MarketplaceServiceTestSuite struct {
	suite.Suite
	dbService       services.DBService
	nftService      services.NFTService
	listingService  services.ListingService
	activityService services.ActivityService
	hookService     services.HookService
	connections     services.ConnectionService
	chain           *fakeChainClient
	service         services.MarketplaceService
	nft             *models.NFT
	ctx             context.Context
}

func (s *MarketplaceServiceTestSuite) SetupSuite() {
	db, err := services.NewSqliteDBService(":memory:")
	s.Require().NoError(err)
	s.dbService = db
	s.nftService = services.NewNFTService(db.GetDB())
	s.listingService = services.NewListingService(db.GetDB())
	s.activityService = services.NewActivityService(db.GetDB())
	s.ctx = context.Background()
}

func (s *MarketplaceServiceTestSuite) TearDownSuite() {
	if s.dbService != nil {
		s.dbService.Close()
	}
}

func (s *MarketplaceServiceTestSuite) SetupTest() {
	gdb := s.dbService.GetDB()
	for _, table := range []interface{}{
		&models.Sale{}, &models.Listing{}, &models.PriceHistory{}, &models.ActivityFeed{},
		&models.NFTAttribute{}, &models.NFT{},
	} {
		s.Require().NoError(gdb.Where("1 = 1").Delete(table).Error)
	}

	s.hookService = services.NewHookService()
	s.Require().NoError(s.hookService.AddHook(hooks.NewActivityHook(s.activityService)))
	s.Require().NoError(s.hookService.AddHook(hooks.NewPriceHistoryHook(s.activityService)))

	s.chain = newFakeChainClient()
	s.connections = services.NewConnectionService(testChainID)
	s.service = services.NewMarketplaceService(s.chain, s.connections, s.nftService, s.listingService, s.hookService, nil)

	nft, created, err := s.nftService.SaveMintedNFT(&models.NFT{
		TokenID:         "7",
		ContractAddress: testNFTAddress.Hex(),
		ChainID:         testChainID.Int64(),
		OwnerWallet:     testSeller.Hex(),
		Name:            "Seven",
		MintTxHash:      "0xmint7",
		MintedAt:        time.Now().UTC(),
	})
	s.Require().NoError(err)
	s.Require().True(created)
	s.nft = nft
	s.chain.owners["7"] = testSeller
}

func (s *MarketplaceServiceTestSuite) sellerConn() services.Connection {
	return s.connections.Connect(testSigner(testSeller), testChainID)
}

func (s *MarketplaceServiceTestSuite) listed(price string) *models.Listing {
	result, err := s.service.CreateListing(s.ctx, s.sellerConn(), s.nft.ID, price)
	s.Require().NoError(err)
	return result.Listing
}

func (s *MarketplaceServiceTestSuite) countRows(model interface{}) int64 {
	var count int64
	s.Require().NoError(s.dbService.GetDB().Model(model).Count(&count).Error)
	return count
}

func (s *MarketplaceServiceTestSuite) TestListUnapprovedToken() {
	result, err := s.service.CreateListing(s.ctx, s.sellerConn(), s.nft.ID, "0.5")
	s.Require().NoError(err)

	s.Equal(1, s.chain.callCount("approve"))
	s.Equal(1, s.chain.callCount("list"))
	s.NotEmpty(result.ApprovalTxHash)
	s.NotEmpty(result.ListTxHash)
	s.Contains(result.ExplorerURL, "https://sepolia.etherscan.io/tx/")

	active, err := s.service.GetActiveListing(s.nft.ID)
	s.Require().NoError(err)
	s.Require().NotNil(active)
	s.Equal("7", active.TokenID)
	s.Equal("0.5", active.PriceEth)
	s.Equal(models.ListingStatusActive, active.Status)
	s.Equal(utils.NormalizeAddress(testSeller.Hex()), active.SellerWallet)

	history, err := s.activityService.ListPriceHistory(s.nft.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(models.PriceEventListed, history[0].Event)
	s.Equal("0.5", history[0].PriceEth)
}

func (s *MarketplaceServiceTestSuite) TestListApprovedTokenSkipsApproval() {
	s.chain.approved["7"] = true

	result, err := s.service.CreateListing(s.ctx, s.sellerConn(), s.nft.ID, "1.25")
	s.Require().NoError(err)
	s.Empty(result.ApprovalTxHash)
	s.Equal(0, s.chain.callCount("approve"))
	s.Equal(1, s.chain.callCount("list"))
}

func (s *MarketplaceServiceTestSuite) TestListFailedApprovalNeverLists() {
	s.chain.approveErr = &services.ChainError{Kind: services.ChainErrorUserRejected}

	_, err := s.service.CreateListing(s.ctx, s.sellerConn(), s.nft.ID, "0.5")
	s.ErrorIs(err, services.ErrUserRejected)
	s.Equal(0, s.chain.callCount("list"))
	s.Zero(s.countRows(&models.Listing{}))
}

func (s *MarketplaceServiceTestSuite) TestListRejectsInvalidPrice() {
	for _, price := range []string{"0", "-1", "abc", "", "1e100", "1e2000000"} {
		_, err := s.service.CreateListing(s.ctx, s.sellerConn(), s.nft.ID, price)
		s.ErrorIs(err, utils.ErrInvalidPrice, "price %q", price)
	}
	s.Empty(s.chain.calls)
}

func (s *MarketplaceServiceTestSuite) TestListByNonOwner() {
	conn := s.connections.Connect(testSigner(testBuyer), testChainID)
	_, err := s.service.CreateListing(s.ctx, conn, s.nft.ID, "0.5")
	s.ErrorIs(err, services.ErrNotOwner)
	s.Equal(0, s.chain.callCount("list"))
}

func (s *MarketplaceServiceTestSuite) TestBuyRecordsSale() {
	listing := s.listed("0.5")

	buyer := s.connections.Connect(testSigner(testBuyer), testChainID)
	result, err := s.service.PurchaseNFT(s.ctx, buyer, listing.ID)
	s.Require().NoError(err)

	s.Equal("0.01250000", result.Sale.PlatformFeeEth)
	s.Equal("0.48750000", result.Sale.SellerProceedsEth)
	s.Equal("2.5", result.Sale.FeePercent)
	s.Equal(models.FeeSourceContract, result.Sale.FeeSource)
	s.Equal(1, s.chain.callCount("platformFeeAt"))

	stored, err := s.listingService.GetListing(listing.ID)
	s.Require().NoError(err)
	s.Equal(models.ListingStatusSold, stored.Status)

	nft, err := s.nftService.GetNFTByID(s.nft.ID)
	s.Require().NoError(err)
	s.Equal("0xbeef000000000000000000000000000000000002", nft.OwnerWallet)

	sales, err := s.listingService.ListSales(s.nft.ID)
	s.Require().NoError(err)
	s.Require().Len(sales, 1)
	s.Equal("0.01250000", sales[0].PlatformFeeEth)
	s.Equal(listing.ID, *sales[0].ListingID)

	activity, err := s.activityService.ListActivity(services.ActivityFilter{NFTID: s.nft.ID})
	s.Require().NoError(err)
	s.Require().Len(activity, 2)
	s.Equal(models.ActivityTypeSold, activity[0].ActivityType)

	history, err := s.activityService.ListPriceHistory(s.nft.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(models.PriceEventSold, history[1].Event)

	active, err := s.service.GetActiveListing(s.nft.ID)
	s.Require().NoError(err)
	s.Nil(active)
}

func (s *MarketplaceServiceTestSuite) TestBuyFeeReadFailureUsesDefault() {
	listing := s.listed("0.5")
	s.chain.feeErr = errors.New("rpc unavailable")

	buyer := s.connections.Connect(testSigner(testBuyer), testChainID)
	result, err := s.service.PurchaseNFT(s.ctx, buyer, listing.ID)
	s.Require().NoError(err)
	s.Equal(models.FeeSourceDefault, result.Sale.FeeSource)
	s.Equal("0.01250000", result.Sale.PlatformFeeEth)
}

func (s *MarketplaceServiceTestSuite) TestBuyUsesFeeInEffectAtSale() {
	listing := s.listed("2")
	s.chain.feePercent = decimal.RequireFromString("5")

	buyer := s.connections.Connect(testSigner(testBuyer), testChainID)
	result, err := s.service.PurchaseNFT(s.ctx, buyer, listing.ID)
	s.Require().NoError(err)
	s.Equal("5", result.Sale.FeePercent)
	s.Equal("0.10000000", result.Sale.PlatformFeeEth)
	s.Equal("1.90000000", result.Sale.SellerProceedsEth)
}

func (s *MarketplaceServiceTestSuite) TestBuyStaleListingOnChain() {
	listing := s.listed("0.5")
	// cancelled on-chain without the mirror noticing
	delete(s.chain.listings, "7")

	buyer := s.connections.Connect(testSigner(testBuyer), testChainID)
	_, err := s.service.PurchaseNFT(s.ctx, buyer, listing.ID)
	s.ErrorIs(err, services.ErrStaleListing)

	var chainErr *services.ChainError
	s.Require().True(errors.As(err, &chainErr))
	s.Equal("Someone beat you to it: this listing is no longer available.", chainErr.UserMessage())

	s.Zero(s.countRows(&models.Sale{}))
	stored, err := s.listingService.GetListing(listing.ID)
	s.Require().NoError(err)
	s.Equal(models.ListingStatusActive, stored.Status)
	nft, err := s.nftService.GetNFTByID(s.nft.ID)
	s.Require().NoError(err)
	s.Equal(utils.NormalizeAddress(testSeller.Hex()), nft.OwnerWallet)
}

func (s *MarketplaceServiceTestSuite) TestRacingBuyers() {
	listing := s.listed("0.5")

	buyers := []services.Connection{
		s.connections.Connect(testSigner(testBuyer), testChainID),
		s.connections.Connect(testSigner(testOtherBuyer), testChainID),
	}

	var wg sync.WaitGroup
	errs := make([]error, len(buyers))
	for i, conn := range buyers {
		wg.Add(1)
		go func(i int, conn services.Connection) {
			defer wg.Done()
			_, errs[i] = s.service.PurchaseNFT(s.ctx, conn, listing.ID)
		}(i, conn)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, services.ErrStaleListing)
	}
	s.Equal(1, succeeded)
	s.Equal(int64(1), s.countRows(&models.Sale{}))
}

func (s *MarketplaceServiceTestSuite) TestChainFailureWritesNothing() {
	s.Run("list", func() {
		s.chain.listErr = &services.ChainError{Kind: services.ChainErrorUserRejected}
		_, err := s.service.CreateListing(s.ctx, s.sellerConn(), s.nft.ID, "0.5")
		s.ErrorIs(err, services.ErrUserRejected)
		s.Zero(s.countRows(&models.Listing{}))
		s.Zero(s.countRows(&models.PriceHistory{}))
		s.Zero(s.countRows(&models.ActivityFeed{}))
		s.chain.listErr = nil
	})

	listing := s.listed("0.5")
	historyBefore := s.countRows(&models.PriceHistory{})
	activityBefore := s.countRows(&models.ActivityFeed{})

	s.Run("buy", func() {
		s.chain.buyErr = &services.ChainError{Kind: services.ChainErrorInsufficientFunds}
		buyer := s.connections.Connect(testSigner(testBuyer), testChainID)
		_, err := s.service.PurchaseNFT(s.ctx, buyer, listing.ID)
		s.ErrorIs(err, services.ErrInsufficientFunds)
		s.Zero(s.countRows(&models.Sale{}))
		s.chain.buyErr = nil
	})

	s.Run("cancel", func() {
		s.chain.cancelErr = &services.ChainError{Kind: services.ChainErrorNetworkMismatch}
		_, err := s.service.CancelListing(s.ctx, s.sellerConn(), listing.ID)
		s.ErrorIs(err, services.ErrNetworkMismatch)
		s.chain.cancelErr = nil
	})

	stored, err := s.listingService.GetListing(listing.ID)
	s.Require().NoError(err)
	s.Equal(models.ListingStatusActive, stored.Status)
	s.Equal(historyBefore, s.countRows(&models.PriceHistory{}))
	s.Equal(activityBefore, s.countRows(&models.ActivityFeed{}))
}

func (s *MarketplaceServiceTestSuite) TestCancelThenRelist() {
	first := s.listed("0.5")

	result, err := s.service.CancelListing(s.ctx, s.sellerConn(), first.ID)
	s.Require().NoError(err)
	s.Equal(first.ID, result.ListingID)

	stored, err := s.listingService.GetListing(first.ID)
	s.Require().NoError(err)
	s.Equal(models.ListingStatusCancelled, stored.Status)

	activity, err := s.activityService.ListActivity(services.ActivityFilter{NFTID: s.nft.ID})
	s.Require().NoError(err)
	s.Require().NotEmpty(activity)
	s.Equal(models.ActivityTypeDelisted, activity[0].ActivityType)

	history, err := s.activityService.ListPriceHistory(s.nft.ID)
	s.Require().NoError(err)
	s.Len(history, 1)

	second := s.listed("0.75")
	s.NotEqual(first.ID, second.ID)

	active, err := s.service.GetActiveListing(s.nft.ID)
	s.Require().NoError(err)
	s.Equal(second.ID, active.ID)
}

func (s *MarketplaceServiceTestSuite) TestAtMostOneActiveListing() {
	s.listed("0.5")
	s.listed("0.6")
	s.listed("0.7")

	var active int64
	s.Require().NoError(s.dbService.GetDB().Model(&models.Listing{}).
		Where("nft_id = ? AND status = ?", s.nft.ID, models.ListingStatusActive).
		Count(&active).Error)
	s.Equal(int64(1), active)

	current, err := s.service.GetActiveListing(s.nft.ID)
	s.Require().NoError(err)
	s.Equal("0.7", current.PriceEth)
}

func (s *MarketplaceServiceTestSuite) TestCancelByNonSeller() {
	listing := s.listed("0.5")
	conn := s.connections.Connect(testSigner(testBuyer), testChainID)

	_, err := s.service.CancelListing(s.ctx, conn, listing.ID)
	s.ErrorIs(err, services.ErrNotOwner)
	s.Equal(0, s.chain.callCount("cancel"))
}

func (s *MarketplaceServiceTestSuite) TestStaleConnectionEpoch() {
	stale := s.sellerConn()
	s.sellerConn()

	_, err := s.service.CreateListing(s.ctx, stale, s.nft.ID, "0.5")
	s.ErrorIs(err, services.ErrStaleConnection)
	s.Empty(s.chain.calls)
}

func (s *MarketplaceServiceTestSuite) TestWrongNetwork() {
	conn := s.connections.Connect(testSigner(testSeller), big.NewInt(1))
	_, err := s.service.CreateListing(s.ctx, conn, s.nft.ID, "0.5")
	s.ErrorIs(err, services.ErrNetworkMismatch)
	s.Empty(s.chain.calls)
}

func (s *MarketplaceServiceTestSuite) TestMirrorDivergenceIsSurfacedNotRetried() {
	failing := newMockHook("failing", models.TransactionTypeList)
	failing.setError(true, "activity store offline")
	s.Require().NoError(s.hookService.AddHook(failing))

	result, err := s.service.CreateListing(s.ctx, s.sellerConn(), s.nft.ID, "0.5")
	s.Require().Error(err)
	s.ErrorIs(err, services.ErrMirrorDivergence)

	var divergence *services.MirrorDivergenceError
	s.Require().True(errors.As(err, &divergence))
	s.Equal("list", divergence.Operation)
	s.Equal(result.ListTxHash, divergence.TxHash)

	s.Require().NotNil(result)
	s.Equal(1, s.chain.callCount("list"))
}

func (s *MarketplaceServiceTestSuite) TestQuoteFee() {
	quote, err := s.service.QuoteFee(s.ctx, "0.5")
	s.Require().NoError(err)
	s.Equal("2.5", quote.FeePercent)
	s.Equal("0.01250000", quote.PlatformFeeEth)
	s.Equal("0.48750000", quote.SellerProceedsEth)

	for _, price := range []string{"0", "1e100", "1e2000000"} {
		_, err = s.service.QuoteFee(s.ctx, price)
		s.ErrorIs(err, utils.ErrInvalidPrice, "price %q", price)
	}
}

func (s *MarketplaceServiceTestSuite) TestGetActiveListingNone() {
	listing, err := s.service.GetActiveListing(s.nft.ID)
	s.NoError(err)
	s.Nil(listing)
}

func TestMarketplaceServiceTestSuite(t *testing.T) {
	suite.Run(t, new(MarketplaceServiceTestSuite))
}
