package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

type ChainErrorKind string

const (
	ChainErrorUserRejected      ChainErrorKind = "user_rejected"
	ChainErrorInsufficientFunds ChainErrorKind = "insufficient_funds"
	ChainErrorNetworkMismatch   ChainErrorKind = "network_mismatch"
	ChainErrorStaleListing      ChainErrorKind = "stale_listing"
	ChainErrorContractReverted  ChainErrorKind = "contract_reverted"
	ChainErrorUnknown           ChainErrorKind = "unknown"
)

// ChainError is the only error shape that leaves the chain client. Callers
// switch on Kind or match the sentinels below with errors.Is.
type ChainError struct {
	Kind ChainErrorKind
	// Reason is the revert reason for ContractReverted, the raw message otherwise
	Reason string
	Err    error
}

var (
	ErrUserRejected      = &ChainError{Kind: ChainErrorUserRejected}
	ErrInsufficientFunds = &ChainError{Kind: ChainErrorInsufficientFunds}
	ErrNetworkMismatch   = &ChainError{Kind: ChainErrorNetworkMismatch}
	ErrStaleListing      = &ChainError{Kind: ChainErrorStaleListing}
	ErrContractReverted  = &ChainError{Kind: ChainErrorContractReverted}
	ErrChainUnknown      = &ChainError{Kind: ChainErrorUnknown}
)

func (e *ChainError) Error() string {
	if e.Reason == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *ChainError) Unwrap() error {
	return e.Err
}

func (e *ChainError) Is(target error) bool {
	t, ok := target.(*ChainError)
	return ok && t.Kind == e.Kind
}

// UserMessage is the human readable text shown for this failure
func (e *ChainError) UserMessage() string {
	switch e.Kind {
	case ChainErrorUserRejected:
		return "You rejected the transaction in your wallet."
	case ChainErrorInsufficientFunds:
		return "Your balance is too low to cover the price plus gas."
	case ChainErrorNetworkMismatch:
		return "Your wallet is connected to the wrong network. Switch networks and try again."
	case ChainErrorStaleListing:
		return "Someone beat you to it: this listing is no longer available."
	case ChainErrorContractReverted:
		if e.Reason != "" {
			return "The transaction was rejected by the contract: " + e.Reason
		}
		return "The transaction was rejected by the contract."
	default:
		if e.Reason != "" {
			return "Something else went wrong: " + e.Reason
		}
		return "Something else went wrong."
	}
}

func newChainError(kind ChainErrorKind, reason string, err error) *ChainError {
	return &ChainError{Kind: kind, Reason: reason, Err: err}
}

// classifyChainError maps provider, signer and revert errors onto the closed
// ChainError taxonomy. It is applied once at the chain client boundary.
func classifyChainError(err error) error {
	if err == nil {
		return nil
	}

	var chainErr *ChainError
	if errors.As(err, &chainErr) {
		return chainErr
	}

	message := err.Error()
	lower := strings.ToLower(message)

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == 4001 {
		return newChainError(ChainErrorUserRejected, message, err)
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return newChainError(ChainErrorUnknown, message, err)
	case containsAny(lower, "user rejected", "user denied", "rejected by user", "request denied", "action_rejected"):
		return newChainError(ChainErrorUserRejected, message, err)
	case strings.Contains(lower, "insufficient funds"):
		return newChainError(ChainErrorInsufficientFunds, message, err)
	case errors.Is(err, types.ErrInvalidChainId), containsAny(lower, "invalid chain id", "chain id mismatch", "network changed"):
		return newChainError(ChainErrorNetworkMismatch, message, err)
	}

	if reason, ok := revertReason(err); ok {
		return newChainError(ChainErrorContractReverted, reason, err)
	}

	return newChainError(ChainErrorUnknown, message, err)
}

// revertReason extracts the Error(string) payload of a revert when present
func revertReason(err error) (string, bool) {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if data, ok := dataErr.ErrorData().(string); ok {
			if raw, decodeErr := hexutil.Decode(data); decodeErr == nil {
				if reason, unpackErr := abi.UnpackRevert(raw); unpackErr == nil {
					return reason, true
				}
			}
		}
	}

	message := err.Error()
	idx := strings.Index(strings.ToLower(message), "execution reverted")
	if idx < 0 {
		return "", false
	}
	reason := strings.TrimSpace(message[idx+len("execution reverted"):])
	reason = strings.TrimSpace(strings.TrimPrefix(reason, ":"))
	return reason, true
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
