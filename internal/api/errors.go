package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rxtech-lab/nft-marketplace/internal/services"
)

var statusByKind = map[string]int{
	string(services.ChainErrorUserRejected):      fiber.StatusBadRequest,
	string(services.ChainErrorInsufficientFunds): fiber.StatusPaymentRequired,
	string(services.ChainErrorNetworkMismatch):   fiber.StatusConflict,
	string(services.ChainErrorStaleListing):      fiber.StatusConflict,
	string(services.ChainErrorContractReverted):  fiber.StatusUnprocessableEntity,
	string(services.ChainErrorUnknown):           fiber.StatusBadGateway,
	"stale_connection":                           fiber.StatusConflict,
	"no_signer":                                  fiber.StatusServiceUnavailable,
	"not_found":                                  fiber.StatusNotFound,
	"listing_not_active":                         fiber.StatusConflict,
	"not_owner":                                  fiber.StatusForbidden,
	"invalid_input":                              fiber.StatusBadRequest,
	"too_large":                                  fiber.StatusRequestEntityTooLarge,
	"invalid_signature":                          fiber.StatusUnauthorized,
	"content_store_unavailable":                  fiber.StatusServiceUnavailable,
	"content_store":                              fiber.StatusBadGateway,
}

func respondError(c *fiber.Ctx, err error) error {
	kind := services.ErrorKind(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = fiber.StatusInternalServerError
	}
	return c.Status(status).JSON(fiber.Map{
		"error": services.UserMessage(err),
		"kind":  kind,
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
		"kind":  "invalid_input",
	})
}

// respondOperation answers a chain operation. A mirror divergence keeps the
// confirmed chain result in the body next to the error.
func respondOperation(c *fiber.Ctx, result any, err error) error {
	if err == nil {
		return c.JSON(result)
	}
	if errors.Is(err, services.ErrMirrorDivergence) {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"result": result,
			"error":  services.UserMessage(err),
			"kind":   services.ErrorKind(err),
		})
	}
	return respondError(c, err)
}
