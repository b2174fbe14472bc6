package services

import (
	"errors"
	"fmt"

	"github.com/rxtech-lab/nft-marketplace/internal/utils"
)

var (
	ErrStaleConnection         = errors.New("connection epoch is stale, reconnect the wallet and retry")
	ErrNoSigner                = errors.New("connection has no signer")
	ErrNFTNotFound             = errors.New("nft not found")
	ErrListingNotFound         = errors.New("listing not found")
	ErrListingNotActive        = errors.New("listing is not active")
	ErrNotOwner                = errors.New("wallet does not own this nft")
	ErrInvalidTokenURI         = errors.New("token uri must start with ipfs://")
	ErrInvalidRecipient        = errors.New("recipient must be a non-zero address")
	ErrInvalidImage            = errors.New("file must be an image")
	ErrImageTooLarge           = errors.New("image exceeds 100MB")
	ErrInvalidMetadata         = errors.New("metadata requires a name and an image")
	ErrContentStoreUnavailable = errors.New("content store credentials are not configured")
	ErrMirrorDivergence        = errors.New("chain and mirror diverged")
)

// MirrorDivergenceError is returned alongside a successful chain result when
// the mirror could not record it. The chain action is never retried.
type MirrorDivergenceError struct {
	Operation string
	TxHash    string
	NFTID     string
	Err       error
}

func (e *MirrorDivergenceError) Error() string {
	return fmt.Sprintf("%s confirmed on-chain in %s but mirror update for nft %s failed: %v", e.Operation, e.TxHash, e.NFTID, e.Err)
}

func (e *MirrorDivergenceError) Unwrap() []error {
	return []error{ErrMirrorDivergence, e.Err}
}

// ContentStoreError wraps a pinning or gateway failure
type ContentStoreError struct {
	Op  string
	Err error
}

func (e *ContentStoreError) Error() string {
	return fmt.Sprintf("content store %s failed: %v", e.Op, e.Err)
}

func (e *ContentStoreError) Unwrap() error {
	return e.Err
}

// ErrorKind names the failure class of err for API and tool responses
func ErrorKind(err error) string {
	var chainErr *ChainError
	var contentErr *ContentStoreError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMirrorDivergence):
		return "mirror_divergence"
	case errors.As(err, &chainErr):
		return string(chainErr.Kind)
	case errors.Is(err, ErrStaleConnection):
		return "stale_connection"
	case errors.Is(err, ErrNoSigner):
		return "no_signer"
	case errors.Is(err, ErrNFTNotFound), errors.Is(err, ErrListingNotFound):
		return "not_found"
	case errors.Is(err, ErrListingNotActive):
		return "listing_not_active"
	case errors.Is(err, ErrNotOwner):
		return "not_owner"
	case errors.Is(err, utils.ErrInvalidPrice), errors.Is(err, utils.ErrTooManyDigits),
		errors.Is(err, utils.ErrInvalidTokenID), errors.Is(err, ErrInvalidTokenURI),
		errors.Is(err, ErrInvalidRecipient), errors.Is(err, ErrInvalidImage),
		errors.Is(err, ErrInvalidMetadata):
		return "invalid_input"
	case errors.Is(err, utils.ErrSignatureExpired), errors.Is(err, utils.ErrSignatureMismatch):
		return "invalid_signature"
	case errors.Is(err, ErrImageTooLarge):
		return "too_large"
	case errors.Is(err, ErrContentStoreUnavailable):
		return "content_store_unavailable"
	case errors.As(err, &contentErr):
		return "content_store"
	default:
		return "internal"
	}
}

// UserMessage returns the text shown to a person for err
func UserMessage(err error) string {
	var chainErr *ChainError
	if errors.As(err, &chainErr) && !errors.Is(err, ErrMirrorDivergence) {
		return chainErr.UserMessage()
	}
	switch {
	case errors.Is(err, ErrMirrorDivergence):
		return "The transaction succeeded on-chain but the marketplace records could not be updated: " + err.Error()
	case errors.Is(err, ErrStaleConnection):
		return "Your wallet connection changed while this was in progress. Reconnect and try again."
	case errors.Is(err, ErrNoSigner):
		return "No wallet is configured to sign transactions."
	}
	return err.Error()
}
