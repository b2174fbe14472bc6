package services

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rxtech-lab/nft-marketplace/internal/models"
	"github.com/rxtech-lab/nft-marketplace/internal/utils"
	"gorm.io/gorm"
)

type NFTOrder string

const (
	NFTOrderNewest NFTOrder = "newest"
	NFTOrderOldest NFTOrder = "oldest"
)

const DefaultTrendingLimit = 6

// NFTMetadataUpdate holds the editable display fields. Nil fields are left unchanged.
type NFTMetadataUpdate struct {
	Name        *string
	Description *string
	ImageURL    *string
	MetadataURI *string
}

type NFTService interface {
	// SaveMintedNFT inserts the nft and its attributes. A second call with the
	// same mint tx hash returns the existing row and created=false.
	SaveMintedNFT(nft *models.NFT) (saved *models.NFT, created bool, err error)
	GetNFTByID(id string) (*models.NFT, error)
	GetNFTByToken(tokenID, contractAddress string, chainID int64) (*models.NFT, error)
	GetNFTByMintTxHash(txHash string) (*models.NFT, error)
	ListNFTs(order NFTOrder, limit, offset int) ([]models.NFT, error)
	ListNFTsByOwner(owner string) ([]models.NFT, error)
	// ListTrending returns the most recent mints
	ListTrending(limit int) ([]models.NFT, error)
	CountNFTs() (int64, error)
	CountNFTsByOwner(owner string) (int64, error)
	UpdateOwner(id, owner string) error
	UpdateNFTMetadata(id string, update NFTMetadataUpdate) error
	UpsertUser(walletAddress string, walletType models.WalletType) (*models.User, error)
}

type nftService struct {
	db *gorm.DB
}

func NewNFTService(db *gorm.DB) NFTService {
	return &nftService{db: db}
}

func (s *nftService) SaveMintedNFT(nft *models.NFT) (*models.NFT, bool, error) {
	if existing, err := s.GetNFTByMintTxHash(nft.MintTxHash); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, ErrNFTNotFound) {
		return nil, false, err
	}

	if nft.ID == "" {
		nft.ID = uuid.New().String()
	}
	nft.OwnerWallet = utils.NormalizeAddress(nft.OwnerWallet)
	nft.ContractAddress = utils.NormalizeAddress(nft.ContractAddress)
	for i := range nft.Attributes {
		if nft.Attributes[i].ID == "" {
			nft.Attributes[i].ID = uuid.New().String()
		}
		nft.Attributes[i].NFTID = nft.ID
	}

	if err := s.db.Create(nft).Error; err != nil {
		// a concurrent save of the same mint wins the unique index
		if existing, getErr := s.GetNFTByMintTxHash(nft.MintTxHash); getErr == nil {
			return existing, false, nil
		}
		return nil, false, err
	}
	return nft, true, nil
}

func (s *nftService) GetNFTByID(id string) (*models.NFT, error) {
	return s.first(s.db.Where("id = ?", id))
}

func (s *nftService) GetNFTByToken(tokenID, contractAddress string, chainID int64) (*models.NFT, error) {
	return s.first(s.db.Where("token_id = ? AND contract_address = ? AND chain_id = ?",
		tokenID, utils.NormalizeAddress(contractAddress), chainID))
}

func (s *nftService) GetNFTByMintTxHash(txHash string) (*models.NFT, error) {
	return s.first(s.db.Where("mint_tx_hash = ?", txHash))
}

func (s *nftService) ListNFTs(order NFTOrder, limit, offset int) ([]models.NFT, error) {
	direction := "minted_at DESC"
	if order == NFTOrderOldest {
		direction = "minted_at ASC"
	}
	query := s.db.Preload("Attributes").Order(direction)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var nfts []models.NFT
	err := query.Find(&nfts).Error
	return nfts, err
}

func (s *nftService) ListNFTsByOwner(owner string) ([]models.NFT, error) {
	var nfts []models.NFT
	err := s.db.Preload("Attributes").
		Where("owner_wallet = ?", utils.NormalizeAddress(owner)).
		Order("minted_at DESC").
		Find(&nfts).Error
	return nfts, err
}

func (s *nftService) ListTrending(limit int) ([]models.NFT, error) {
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}
	return s.ListNFTs(NFTOrderNewest, limit, 0)
}

func (s *nftService) CountNFTs() (int64, error) {
	var count int64
	err := s.db.Model(&models.NFT{}).Count(&count).Error
	return count, err
}

func (s *nftService) CountNFTsByOwner(owner string) (int64, error) {
	var count int64
	err := s.db.Model(&models.NFT{}).Where("owner_wallet = ?", utils.NormalizeAddress(owner)).Count(&count).Error
	return count, err
}

func (s *nftService) UpdateOwner(id, owner string) error {
	result := s.db.Model(&models.NFT{}).Where("id = ?", id).Update("owner_wallet", utils.NormalizeAddress(owner))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNFTNotFound
	}
	return nil
}

func (s *nftService) UpdateNFTMetadata(id string, update NFTMetadataUpdate) error {
	updates := map[string]interface{}{}
	if update.Name != nil {
		if strings.TrimSpace(*update.Name) == "" {
			return ErrInvalidMetadata
		}
		updates["name"] = *update.Name
	}
	if update.Description != nil {
		updates["description"] = *update.Description
	}
	if update.ImageURL != nil {
		updates["image_url"] = *update.ImageURL
	}
	if update.MetadataURI != nil {
		updates["metadata_uri"] = *update.MetadataURI
	}
	if len(updates) == 0 {
		return nil
	}

	result := s.db.Model(&models.NFT{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNFTNotFound
	}
	return nil
}

func (s *nftService) UpsertUser(walletAddress string, walletType models.WalletType) (*models.User, error) {
	if !utils.IsValidEthereumAddress(walletAddress) {
		return nil, ErrInvalidRecipient
	}
	if walletType == "" {
		walletType = models.WalletTypeMetamask
	}
	wallet := utils.NormalizeAddress(walletAddress)

	var user models.User
	err := s.db.Where("wallet_address = ?", wallet).First(&user).Error
	switch {
	case err == nil:
		if user.WalletType != walletType {
			user.WalletType = walletType
			if err := s.db.Model(&user).Update("wallet_type", walletType).Error; err != nil {
				return nil, err
			}
		}
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{ID: uuid.New().String(), WalletAddress: wallet, WalletType: walletType}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	default:
		return nil, err
	}
}

func (s *nftService) first(query *gorm.DB) (*models.NFT, error) {
	var nft models.NFT
	err := query.Preload("Attributes").First(&nft).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNFTNotFound
	}
	if err != nil {
		return nil, err
	}
	return &nft, nil
}
