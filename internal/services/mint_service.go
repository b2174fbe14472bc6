package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/nft-marketplace/internal/constants"
	"github.com/rxtech-lab/nft-marketplace/internal/models"
	"github.com/rxtech-lab/nft-marketplace/internal/utils"
	"go.uber.org/zap"
)

type MintStep string

const (
	MintStepUploadingImage    MintStep = "uploading-image"
	MintStepUploadingMetadata MintStep = "uploading-metadata"
	MintStepMinting           MintStep = "minting"
	MintStepSaving            MintStep = "saving"
	MintStepComplete          MintStep = "complete"
)

type MintProgress struct {
	Step     MintStep `json:"step"`
	Message  string   `json:"message"`
	Progress int      `json:"progress"`
}

// ProgressFunc receives each stage transition of a mint
type ProgressFunc func(MintProgress)

type MintAttribute struct {
	TraitType string `json:"trait_type" validate:"required"`
	Value     string `json:"value" validate:"required"`
}

type MintRequest struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	Attributes  []MintAttribute `json:"attributes" validate:"dive"`
	// Recipient defaults to the connected wallet
	Recipient        common.Address `json:"recipient"`
	Image            []byte         `json:"-"`
	ImageFileName    string         `json:"image_file_name"`
	ImageContentType string         `json:"image_content_type"`
}

// NFTMetadata is the JSON document pinned for every token
type NFTMetadata struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Attributes  []MintAttribute `json:"attributes"`
}

type MintOutcome struct {
	NFT         *models.NFT `json:"nft"`
	TokenID     string      `json:"token_id"`
	TxHash      string      `json:"tx_hash"`
	MetadataURI string      `json:"metadata_uri"`
	ImageURL    string      `json:"image_url"`
	ExplorerURL string      `json:"explorer_url"`
}

// MintService uploads content, mints and mirrors a new token. Every stage can
// fail and aborts the stages after it; content failures happen before any gas is spent.
type MintService interface {
	Mint(ctx context.Context, conn Connection, req MintRequest, progress ProgressFunc) (*MintOutcome, error)
	// ResolveMetadata reads tokenURI from the chain and fetches it through the gateways
	ResolveMetadata(ctx context.Context, tokenID string) (*NFTMetadata, error)
}

type mintService struct {
	chain       ChainClient
	content     ContentStore
	connections ConnectionService
	nfts        NFTService
	hooks       HookService
	validator   *validator.Validate
	chainID     int64
	logger      *zap.Logger
}

func NewMintService(chain ChainClient, content ContentStore, connections ConnectionService, nfts NFTService, hooks HookService, logger *zap.Logger) MintService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &mintService{
		chain:       chain,
		content:     content,
		connections: connections,
		nfts:        nfts,
		hooks:       hooks,
		validator:   validator.New(),
		chainID:     connections.TargetChainID().Int64(),
		logger:      logger.Named("mint"),
	}
}

func (s *mintService) Mint(ctx context.Context, conn Connection, req MintRequest, progress ProgressFunc) (*MintOutcome, error) {
	if progress == nil {
		progress = func(MintProgress) {}
	}

	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	contentType, err := imageContentType(req)
	if err != nil {
		return nil, err
	}
	if err := s.connections.Validate(conn); err != nil {
		return nil, err
	}
	recipient := req.Recipient
	if recipient == (common.Address{}) {
		recipient = conn.Address
	}

	progress(MintProgress{Step: MintStepUploadingImage, Message: "Uploading image to IPFS...", Progress: 10})
	fileName := req.ImageFileName
	if fileName == "" {
		fileName = "image"
	}
	image, err := s.content.PinFile(ctx, req.Name, fileName, contentType, req.Image)
	if err != nil {
		return nil, err
	}
	imageURI := utils.IPFSURI(image.IpfsHash)
	imageURL := utils.GatewayURL(constants.DefaultIPFSGateway, image.IpfsHash)

	progress(MintProgress{Step: MintStepUploadingMetadata, Message: "Uploading metadata to IPFS...", Progress: 30})
	attributes := req.Attributes
	if attributes == nil {
		attributes = []MintAttribute{}
	}
	metadata, err := s.content.PinJSON(ctx, req.Name, NFTMetadata{
		Name:        req.Name,
		Description: req.Description,
		Image:       imageURI,
		Attributes:  attributes,
	})
	if err != nil {
		return nil, err
	}
	metadataURI := utils.IPFSURI(metadata.IpfsHash)

	progress(MintProgress{Step: MintStepMinting, Message: "Minting NFT on blockchain...", Progress: 50})
	minted, err := s.chain.MintNFT(ctx, conn, recipient, metadataURI)
	if err != nil {
		return nil, err
	}
	outcome := &MintOutcome{
		TokenID:     minted.TokenID,
		TxHash:      minted.TxHash,
		MetadataURI: metadataURI,
		ImageURL:    imageURL,
		ExplorerURL: utils.ExplorerTxURL(s.chainID, minted.TxHash),
	}

	progress(MintProgress{Step: MintStepSaving, Message: "Saving to database...", Progress: 80})
	nft := &models.NFT{
		TokenID:         minted.TokenID,
		ContractAddress: s.chain.NFTContract().Hex(),
		ChainID:         s.chainID,
		OwnerWallet:     minted.Owner,
		Name:            req.Name,
		ImageURL:        &imageURL,
		MetadataURI:     &metadataURI,
		MintTxHash:      minted.TxHash,
		MintedAt:        minted.MintedAt,
	}
	if req.Description != "" {
		nft.Description = &req.Description
	}
	for _, attribute := range req.Attributes {
		nft.Attributes = append(nft.Attributes, models.NFTAttribute{TraitType: attribute.TraitType, Value: attribute.Value})
	}

	saved, created, err := s.nfts.SaveMintedNFT(nft)
	if err != nil {
		return outcome, s.diverged(minted.TxHash, err)
	}
	outcome.NFT = saved

	if created {
		err = s.hooks.OnTransactionConfirmed(models.MarketEvent{
			Type:       models.TransactionTypeMint,
			NFTID:      saved.ID,
			TokenID:    saved.TokenID,
			ToWallet:   saved.OwnerWallet,
			TxHash:     minted.TxHash,
			ChainID:    s.chainID,
			OccurredAt: saved.MintedAt,
			Metadata:   models.JSON{"metadata_uri": metadataURI},
		})
		if err != nil {
			return outcome, s.diverged(minted.TxHash, err)
		}
	}

	progress(MintProgress{Step: MintStepComplete, Message: "NFT minted successfully!", Progress: 100})
	s.logger.Info("nft minted",
		zap.String("nft_id", saved.ID),
		zap.String("token_id", saved.TokenID),
		zap.String("owner", saved.OwnerWallet),
		zap.String("tx_hash", minted.TxHash),
	)
	return outcome, nil
}

func (s *mintService) ResolveMetadata(ctx context.Context, tokenID string) (*NFTMetadata, error) {
	id, err := utils.ParseTokenID(tokenID)
	if err != nil {
		return nil, err
	}
	uri, err := s.chain.TokenURI(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := s.content.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}

	var metadata NFTMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	if metadata.Name == "" || metadata.Image == "" {
		return nil, ErrInvalidMetadata
	}
	return &metadata, nil
}

func (s *mintService) diverged(txHash string, err error) error {
	s.logger.Error("minted on-chain but mirror write failed", zap.String("tx_hash", txHash), zap.Error(err))
	return &MirrorDivergenceError{Operation: "mint", TxHash: txHash, Err: err}
}

func imageContentType(req MintRequest) (string, error) {
	if len(req.Image) == 0 {
		return "", ErrInvalidImage
	}
	if len(req.Image) > constants.MaxImageSize {
		return "", ErrImageTooLarge
	}
	contentType := req.ImageContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(req.Image)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrInvalidImage
	}
	return contentType, nil
}
