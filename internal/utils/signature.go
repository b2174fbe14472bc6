package utils

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignInWindow is how long a signed sign-in message stays valid
const SignInWindow = 10 * time.Minute

var (
	ErrSignatureExpired  = errors.New("sign-in message has expired")
	ErrSignatureMismatch = errors.New("signature was not produced by this wallet")
)

// SignInMessage is the text a wallet signs with personal_sign to prove it
// controls the address. Both sides rebuild it from the same fields.
func SignInMessage(walletAddress string, issuedAt time.Time) string {
	return fmt.Sprintf("Sign in to NFT Marketplace\nWallet: %s\nIssued At: %d",
		NormalizeAddress(walletAddress), issuedAt.Unix())
}

// VerifySignIn checks that signature is walletAddress's personal_sign of the
// sign-in message issued at issuedAt, and that the message is still fresh.
func VerifySignIn(walletAddress string, issuedAt time.Time, signature string, now time.Time) error {
	if now.Sub(issuedAt) > SignInWindow || issuedAt.Sub(now) > time.Minute {
		return ErrSignatureExpired
	}
	ok, err := VerifyPersonalSignature(SignInMessage(walletAddress, issuedAt), signature, walletAddress)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	}
	if !ok {
		return ErrSignatureMismatch
	}
	return nil
}

// getAddressFromSignature recovers the signer address of a personal_sign signature
func getAddressFromSignature(signature, message string) (string, error) {
	if !strings.HasPrefix(signature, "0x") {
		return "", fmt.Errorf("signature must start with 0x")
	}
	if len(strings.TrimPrefix(signature, "0x")) != 130 {
		return "", fmt.Errorf("signature must be 65 bytes (130 hex characters)")
	}

	sigData, err := hexutil.Decode(signature)
	if err != nil {
		return "", fmt.Errorf("failed to decode signature: %w", err)
	}

	// wallets return v as 27/28, go-ethereum expects 0/1
	if sigData[64] >= 27 {
		sigData[64] -= 27
	}

	publicKey, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sigData)
	if err != nil {
		return "", fmt.Errorf("failed to recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*publicKey).Hex(), nil
}

func personalSign(message string, privateKey *ecdsa.PrivateKey) (string, error) {
	if privateKey == nil {
		return "", fmt.Errorf("private key cannot be nil")
	}
	if message == "" {
		return "", fmt.Errorf("message cannot be empty")
	}

	signature, err := crypto.Sign(accounts.TextHash([]byte(message)), privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}
	return "0x" + hex.EncodeToString(signature), nil
}

// PersonalSignFromHex signs message the way a wallet's personal_sign does
func PersonalSignFromHex(message string, privateKeyHex string) (string, error) {
	if privateKeyHex == "" {
		return "", fmt.Errorf("private key hex cannot be empty")
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return "", fmt.Errorf("failed to parse private key: %w", err)
	}
	return personalSign(message, privateKey)
}

// VerifyPersonalSignature reports whether signerAddress produced signature for message
func VerifyPersonalSignature(message string, signature string, signerAddress string) (bool, error) {
	if message == "" {
		return false, fmt.Errorf("message cannot be empty")
	}
	if signature == "" {
		return false, fmt.Errorf("signature cannot be empty")
	}
	if !common.IsHexAddress(signerAddress) {
		return false, fmt.Errorf("invalid signer address format: %s", signerAddress)
	}

	recoveredAddress, err := getAddressFromSignature(signature, message)
	if err != nil {
		return false, fmt.Errorf("failed to recover address from signature: %w", err)
	}
	return strings.EqualFold(recoveredAddress, signerAddress), nil
}
