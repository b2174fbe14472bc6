package utils

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/rxtech-lab/nft-marketplace/internal/constants"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPrice  = errors.New("price must be a positive decimal ETH amount")
	ErrTooManyDigits = errors.New("price has more than 18 decimal places")
)

// maxPriceExponent bounds scientific notation before any shift is attempted
const maxPriceExponent = 60

var (
	hundred    = decimal.NewFromInt(100)
	maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

// ParsePriceEth parses a user supplied ETH price; it must be > 0 and fit in a uint256 of wei
func ParsePriceEth(price string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(price))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPrice, price)
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidPrice
	}
	if exp := d.Exponent(); exp > maxPriceExponent || exp < -maxPriceExponent {
		return decimal.Zero, fmt.Errorf("%w: %q is out of range", ErrInvalidPrice, price)
	}
	if !d.Shift(constants.WeiDecimals).IsInteger() {
		return decimal.Zero, ErrTooManyDigits
	}
	if ToWei(d).Cmp(maxUint256) > 0 {
		return decimal.Zero, fmt.Errorf("%w: %q exceeds the largest wei amount", ErrInvalidPrice, price)
	}
	return d, nil
}

// ToWei converts an ETH amount to wei
func ToWei(eth decimal.Decimal) *big.Int {
	return eth.Shift(constants.WeiDecimals).BigInt()
}

// FromWei converts wei to an ETH amount
func FromWei(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -constants.WeiDecimals)
}

// FormatEther renders wei as a minimal ETH string ("0.5", "1")
func FormatEther(wei *big.Int) string {
	return FromWei(wei).String()
}

// FeePercentFromBps converts marketplace basis points to a percentage (250 -> 2.5)
func FeePercentFromBps(bps *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(bps, 0).Div(hundred)
}

// ComputeFee returns round(price*percent/100, 8) and price minus that fee
func ComputeFee(price, percent decimal.Decimal) (fee, proceeds decimal.Decimal) {
	fee = price.Mul(percent).Div(hundred).Round(constants.FeeDecimals)
	return fee, price.Sub(fee)
}

// FormatFeeAmount renders a fee or proceeds amount with the fixed mirror precision
func FormatFeeAmount(amount decimal.Decimal) string {
	return amount.StringFixed(constants.FeeDecimals)
}
