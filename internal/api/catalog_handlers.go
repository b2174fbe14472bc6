package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rxtech-lab/nft-marketplace/internal/models"
	"github.com/rxtech-lab/nft-marketplace/internal/services"
	"github.com/rxtech-lab/nft-marketplace/internal/utils"
)

const defaultPageSize = 20

func (s *APIServer) handleListNFTs(c *fiber.Ctx) error {
	owner := c.Query("owner")
	if owner != "" {
		if !utils.IsValidEthereumAddress(owner) {
			return badRequest(c, "owner must be a wallet address")
		}
		nfts, err := s.services.NFTs.ListNFTsByOwner(owner)
		if err != nil {
			return respondError(c, err)
		}
		total, err := s.services.NFTs.CountNFTsByOwner(owner)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"nfts": nonNil(nfts), "count": len(nfts), "total": total})
	}

	order := services.NFTOrder(c.Query("order", string(services.NFTOrderNewest)))
	if order != services.NFTOrderNewest && order != services.NFTOrderOldest {
		return badRequest(c, "order must be newest or oldest")
	}
	limit := c.QueryInt("limit", defaultPageSize)
	offset := c.QueryInt("offset", 0)

	nfts, err := s.services.NFTs.ListNFTs(order, limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	total, err := s.services.NFTs.CountNFTs()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"nfts": nonNil(nfts), "count": len(nfts), "total": total})
}

func (s *APIServer) handleTrendingNFTs(c *fiber.Ctx) error {
	nfts, err := s.services.NFTs.ListTrending(c.QueryInt("limit", services.DefaultTrendingLimit))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"nfts": nonNil(nfts), "count": len(nfts)})
}

func (s *APIServer) handleGetNFT(c *fiber.Ctx) error {
	nft, err := s.services.NFTs.GetNFTByID(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	active, err := s.services.Listings.GetActiveListing(nft.ID)
	if err != nil && !errors.Is(err, services.ErrListingNotFound) {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"nft":            nft,
		"active_listing": active,
		"explorer_url":   utils.ExplorerTokenURL(nft.ChainID, nft.ContractAddress, nft.TokenID),
	})
}

func (s *APIServer) handleGetActiveListing(c *fiber.Ctx) error {
	nftID := c.Params("id")
	if _, err := s.services.NFTs.GetNFTByID(nftID); err != nil {
		return respondError(c, err)
	}
	listing, err := s.services.Marketplace.GetActiveListing(nftID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"listed": listing != nil, "listing": listing})
}

func (s *APIServer) handlePriceHistory(c *fiber.Ctx) error {
	history, err := s.services.Activities.ListPriceHistory(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if history == nil {
		history = []models.PriceHistory{}
	}
	return c.JSON(fiber.Map{"price_history": history})
}

func (s *APIServer) handleSales(c *fiber.Ctx) error {
	sales, err := s.services.Listings.ListSales(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if sales == nil {
		sales = []models.Sale{}
	}
	return c.JSON(fiber.Map{"sales": sales})
}

func (s *APIServer) handleActivity(c *fiber.Ctx) error {
	activity, err := s.services.Activities.ListActivity(services.ActivityFilter{
		NFTID:  c.Query("nft_id"),
		Wallet: c.Query("wallet"),
		Limit:  c.QueryInt("limit", services.DefaultActivityLimit),
	})
	if err != nil {
		return respondError(c, err)
	}
	if activity == nil {
		activity = []models.ActivityFeed{}
	}
	return c.JSON(fiber.Map{"activity": activity, "count": len(activity)})
}

func (s *APIServer) handleQuoteFee(c *fiber.Ctx) error {
	price := c.Query("price")
	if price == "" {
		return badRequest(c, "price is required")
	}
	quote, err := s.services.Marketplace.QuoteFee(c.UserContext(), price)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(quote)
}

type estimateRequest struct {
	Operation string `json:"operation" validate:"required,oneof=approve list buy cancel mint"`
	TokenID   string `json:"token_id"`
	PriceEth  string `json:"price_eth"`
	TokenURI  string `json:"token_uri"`
}

func (s *APIServer) handleEstimate(c *fiber.Ctx) error {
	var body estimateRequest
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := s.validator.Struct(body); err != nil {
		return badRequest(c, err.Error())
	}

	req := services.GasEstimateRequest{
		Operation: services.GasOperation(body.Operation),
		TokenID:   body.TokenID,
		PriceEth:  body.PriceEth,
		TokenURI:  body.TokenURI,
	}
	if conn, err := s.services.Operator.Connection(); err == nil {
		req.From = conn.Address
	}
	return c.JSON(s.services.Gas.Estimate(c.UserContext(), req))
}

func nonNil(nfts []models.NFT) []models.NFT {
	if nfts == nil {
		return []models.NFT{}
	}
	return nfts
}
