package api

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/rxtech-lab/nft-marketplace/internal/constants"
	"github.com/rxtech-lab/nft-marketplace/internal/services"
	"github.com/rxtech-lab/nft-marketplace/internal/utils"
)

type createListingRequest struct {
	NFTID    string `json:"nft_id" validate:"required"`
	PriceEth string `json:"price_eth" validate:"required"`
}

func (s *APIServer) handleCreateListing(c *fiber.Ctx) error {
	var body createListingRequest
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := s.validator.Struct(body); err != nil {
		return badRequest(c, err.Error())
	}

	conn, err := s.services.Operator.Connection()
	if err != nil {
		return respondError(c, err)
	}
	result, err := s.services.Marketplace.CreateListing(c.UserContext(), conn, body.NFTID, body.PriceEth)
	return respondOperation(c, result, err)
}

func (s *APIServer) handlePurchase(c *fiber.Ctx) error {
	conn, err := s.services.Operator.Connection()
	if err != nil {
		return respondError(c, err)
	}
	result, err := s.services.Marketplace.PurchaseNFT(c.UserContext(), conn, c.Params("id"))
	return respondOperation(c, result, err)
}

func (s *APIServer) handleCancelListing(c *fiber.Ctx) error {
	conn, err := s.services.Operator.Connection()
	if err != nil {
		return respondError(c, err)
	}
	result, err := s.services.Marketplace.CancelListing(c.UserContext(), conn, c.Params("id"))
	return respondOperation(c, result, err)
}

func (s *APIServer) handleReconcile(c *fiber.Ctx) error {
	report, err := s.services.Reconcile.ReconcileNFT(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}

// handleMint accepts multipart form data: image, name, description,
// recipient and attributes (a JSON array of {trait_type, value})
func (s *APIServer) handleMint(c *fiber.Ctx) error {
	conn, err := s.services.Operator.Connection()
	if err != nil {
		return respondError(c, err)
	}

	req := services.MintRequest{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
	}

	if recipient := c.FormValue("recipient"); recipient != "" {
		if !utils.IsValidEthereumAddress(recipient) {
			return badRequest(c, "recipient must be a wallet address")
		}
		req.Recipient = common.HexToAddress(recipient)
	}

	if attributes := c.FormValue("attributes"); attributes != "" {
		if err := json.Unmarshal([]byte(attributes), &req.Attributes); err != nil {
			return badRequest(c, "attributes must be a JSON array of {trait_type, value}")
		}
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return respondError(c, fmt.Errorf("%w: image file is required", services.ErrInvalidImage))
	}
	if fileHeader.Size > constants.MaxImageSize {
		return respondError(c, services.ErrImageTooLarge)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return respondError(c, err)
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, constants.MaxImageSize+1))
	if err != nil {
		return respondError(c, err)
	}
	req.Image = image
	req.ImageFileName = fileHeader.Filename
	req.ImageContentType = fileHeader.Header.Get("Content-Type")

	outcome, err := s.services.Mint.Mint(c.UserContext(), conn, req, nil)
	return respondOperation(c, outcome, err)
}
