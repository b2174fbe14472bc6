package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rxtech-lab/nft-marketplace/internal/models"
	"github.com/rxtech-lab/nft-marketplace/internal/utils"
	"gorm.io/gorm"
)

// ListingService is the mirror side of the listing lifecycle. It is only called
// after the matching chain transaction has confirmed.
type ListingService interface {
	// CreateActiveListing inserts an active listing, cancelling any earlier
	// active row for the same nft in the same transaction.
	CreateActiveListing(listing *models.Listing) error
	GetListing(id string) (*models.Listing, error)
	GetActiveListing(nftID string) (*models.Listing, error)
	ListActiveListings(limit, offset int) ([]models.Listing, error)
	ListListingsByNFT(nftID string) ([]models.Listing, error)
	// RecordSale marks the listing sold, moves ownership to the buyer and inserts
	// the sale row atomically
	RecordSale(listingID string, sale *models.Sale) error
	MarkCancelled(listingID string) error
	// CloseListing moves an active listing to a terminal status without a sale row.
	// Reconciliation uses it when the chain already shows the listing gone.
	CloseListing(listingID string, status models.ListingStatus) error
	GetSaleByTxHash(txHash string) (*models.Sale, error)
	ListSales(nftID string) ([]models.Sale, error)
}

type listingService struct {
	db *gorm.DB
}

func NewListingService(db *gorm.DB) ListingService {
	return &listingService{db: db}
}

func (s *listingService) CreateActiveListing(listing *models.Listing) error {
	if listing.ID == "" {
		listing.ID = uuid.New().String()
	}
	listing.Status = models.ListingStatusActive
	listing.SellerWallet = utils.NormalizeAddress(listing.SellerWallet)
	listing.ContractAddress = utils.NormalizeAddress(listing.ContractAddress)

	return s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Listing{}).
			Where("nft_id = ? AND status = ?", listing.NFTID, models.ListingStatusActive).
			Update("status", models.ListingStatusCancelled).Error
		if err != nil {
			return err
		}
		return tx.Omit("NFT").Create(listing).Error
	})
}

func (s *listingService) GetListing(id string) (*models.Listing, error) {
	var listing models.Listing
	err := s.db.Preload("NFT").Where("id = ?", id).First(&listing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (s *listingService) GetActiveListing(nftID string) (*models.Listing, error) {
	var listing models.Listing
	err := s.db.Where("nft_id = ? AND status = ?", nftID, models.ListingStatusActive).First(&listing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (s *listingService) ListActiveListings(limit, offset int) ([]models.Listing, error) {
	query := s.db.Preload("NFT").Where("status = ?", models.ListingStatusActive).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var listings []models.Listing
	err := query.Find(&listings).Error
	return listings, err
}

func (s *listingService) ListListingsByNFT(nftID string) ([]models.Listing, error) {
	var listings []models.Listing
	err := s.db.Where("nft_id = ?", nftID).Order("created_at DESC").Find(&listings).Error
	return listings, err
}

func (s *listingService) RecordSale(listingID string, sale *models.Sale) error {
	if sale.ID == "" {
		sale.ID = uuid.New().String()
	}
	sale.BuyerWallet = utils.NormalizeAddress(sale.BuyerWallet)
	sale.SellerWallet = utils.NormalizeAddress(sale.SellerWallet)
	if listingID != "" {
		sale.ListingID = &listingID
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if listingID != "" {
			result := tx.Model(&models.Listing{}).Where("id = ?", listingID).Update("status", models.ListingStatusSold)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return ErrListingNotFound
			}
		}

		result := tx.Model(&models.NFT{}).Where("id = ?", sale.NFTID).Update("owner_wallet", sale.BuyerWallet)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNFTNotFound
		}

		return tx.Create(sale).Error
	})
}

func (s *listingService) MarkCancelled(listingID string) error {
	return s.CloseListing(listingID, models.ListingStatusCancelled)
}

func (s *listingService) CloseListing(listingID string, status models.ListingStatus) error {
	if !status.IsTerminal() {
		return fmt.Errorf("cannot close listing with status %q", status)
	}
	result := s.db.Model(&models.Listing{}).
		Where("id = ? AND status = ?", listingID, models.ListingStatusActive).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrListingNotActive
	}
	return nil
}

func (s *listingService) GetSaleByTxHash(txHash string) (*models.Sale, error) {
	var sale models.Sale
	if err := s.db.Where("tx_hash = ?", txHash).First(&sale).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *listingService) ListSales(nftID string) ([]models.Sale, error) {
	var sales []models.Sale
	err := s.db.Where("nft_id = ?", nftID).Order("sold_at DESC").Find(&sales).Error
	return sales, err
}
