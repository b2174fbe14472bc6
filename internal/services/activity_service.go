package services

import (
	"github.com/google/uuid"
	"github.com/rxtech-lab/nft-marketplace/internal/models"
	"github.com/rxtech-lab/nft-marketplace/internal/utils"
	"gorm.io/gorm"
)

const DefaultActivityLimit = 50

type ActivityFilter struct {
	NFTID  string
	Wallet string
	Limit  int
}

// ActivityService appends to and reads the price history and activity ledgers.
// Rows are write-once.
type ActivityService interface {
	AppendPriceHistory(entry *models.PriceHistory) error
	ListPriceHistory(nftID string) ([]models.PriceHistory, error)
	AppendActivity(entry *models.ActivityFeed) error
	ListActivity(filter ActivityFilter) ([]models.ActivityFeed, error)
}

type activityService struct {
	db *gorm.DB
}

func NewActivityService(db *gorm.DB) ActivityService {
	return &activityService{db: db}
}

func (s *activityService) AppendPriceHistory(entry *models.PriceHistory) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.FromWallet = normalizeOptional(entry.FromWallet)
	entry.ToWallet = normalizeOptional(entry.ToWallet)
	return s.db.Create(entry).Error
}

// ListPriceHistory returns entries oldest first for charting
func (s *activityService) ListPriceHistory(nftID string) ([]models.PriceHistory, error) {
	var entries []models.PriceHistory
	err := s.db.Where("nft_id = ?", nftID).Order("created_at ASC").Find(&entries).Error
	return entries, err
}

func (s *activityService) AppendActivity(entry *models.ActivityFeed) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.FromWallet = normalizeOptional(entry.FromWallet)
	entry.ToWallet = normalizeOptional(entry.ToWallet)
	return s.db.Create(entry).Error
}

// ListActivity returns the newest entries first
func (s *activityService) ListActivity(filter ActivityFilter) ([]models.ActivityFeed, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultActivityLimit
	}

	query := s.db.Order("created_at DESC").Limit(limit)
	if filter.NFTID != "" {
		query = query.Where("nft_id = ?", filter.NFTID)
	}
	if filter.Wallet != "" {
		wallet := utils.NormalizeAddress(filter.Wallet)
		query = query.Where("from_wallet = ? OR to_wallet = ?", wallet, wallet)
	}

	var entries []models.ActivityFeed
	err := query.Find(&entries).Error
	return entries, err
}

func normalizeOptional(address *string) *string {
	if address == nil || *address == "" {
		return nil
	}
	normalized := utils.NormalizeAddress(*address)
	return &normalized
}
