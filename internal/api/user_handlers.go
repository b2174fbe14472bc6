package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rxtech-lab/nft-marketplace/internal/models"
	"github.com/rxtech-lab/nft-marketplace/internal/utils"
)

type signInRequest struct {
	WalletAddress string `json:"wallet_address" validate:"required,eth_addr"`
	WalletType    string `json:"wallet_type" validate:"omitempty,oneof=metamask phantom"`
	// IssuedAt is the unix time embedded in the signed message
	IssuedAt  int64  `json:"issued_at" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// handleSignIn records a connected wallet once it proves control of the
// address by signing utils.SignInMessage
func (s *APIServer) handleSignIn(c *fiber.Ctx) error {
	var body signInRequest
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := s.validator.Struct(body); err != nil {
		return badRequest(c, err.Error())
	}

	issuedAt := time.Unix(body.IssuedAt, 0)
	if err := utils.VerifySignIn(body.WalletAddress, issuedAt, body.Signature, time.Now()); err != nil {
		return respondError(c, err)
	}

	user, err := s.services.NFTs.UpsertUser(body.WalletAddress, models.WalletType(body.WalletType))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"user": user})
}
