package services_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/rxtech-lab/nft-marketplace/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGasBackend struct {
	mu       sync.Mutex
	gas      uint64
	gasPrice *big.Int
	err      error
	block    bool
	lastCall ethereum.CallMsg
}

func (f *fakeGasBackend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	f.mu.Lock()
	f.lastCall = call
	block, gas, err := f.block, f.gas, f.err
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return gas, err
}

func (f *fakeGasBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return f.gasPrice, nil
}

func newTestGasEstimator(t *testing.T, backend services.GasBackend, timeout time.Duration) services.GasEstimator {
	estimator, err := services.NewGasEstimator(backend, testMarketplaceAddress, testNFTAddress, timeout, nil)
	require.NoError(t, err)
	return estimator
}

func TestGasEstimator(t *testing.T) {
	gwei := big.NewInt(2_000_000_000)

	t.Run("listing estimate has no total", func(t *testing.T) {
		backend := &fakeGasBackend{gas: 50_000, gasPrice: gwei}
		estimate := newTestGasEstimator(t, backend, 0).Estimate(context.Background(), services.GasEstimateRequest{
			Operation: services.GasOperationList,
			From:      testSeller,
			TokenID:   "7",
			PriceEth:  "0.5",
		})

		require.True(t, estimate.Available, estimate.Reason)
		assert.Equal(t, uint64(50_000), estimate.GasLimit)
		assert.Equal(t, "2000000000", estimate.GasPriceWei)
		assert.Equal(t, "100000000000000", estimate.GasCostWei)
		assert.Equal(t, "0.0001", estimate.GasCostEth)
		assert.Empty(t, estimate.TotalCostEth)
		require.NotNil(t, backend.lastCall.To)
		assert.Equal(t, testMarketplaceAddress, *backend.lastCall.To)
	})

	t.Run("purchase estimate includes price", func(t *testing.T) {
		backend := &fakeGasBackend{gas: 50_000, gasPrice: gwei}
		estimate := newTestGasEstimator(t, backend, 0).Estimate(context.Background(), services.GasEstimateRequest{
			Operation: services.GasOperationBuy,
			From:      testBuyer,
			TokenID:   "7",
			PriceEth:  "0.5",
		})

		require.True(t, estimate.Available, estimate.Reason)
		assert.Equal(t, "0.5001", estimate.TotalCostEth)
		assert.Equal(t, "500000000000000000", backend.lastCall.Value.String())
	})

	t.Run("approval targets the nft contract", func(t *testing.T) {
		backend := &fakeGasBackend{gas: 46_000, gasPrice: gwei}
		estimate := newTestGasEstimator(t, backend, 0).Estimate(context.Background(), services.GasEstimateRequest{
			Operation: services.GasOperationApprove,
			From:      testSeller,
			TokenID:   "7",
		})

		require.True(t, estimate.Available, estimate.Reason)
		assert.Equal(t, testNFTAddress, *backend.lastCall.To)
	})

	t.Run("mint adds the gas buffer", func(t *testing.T) {
		backend := &fakeGasBackend{gas: 100_000, gasPrice: gwei}
		estimate := newTestGasEstimator(t, backend, 0).Estimate(context.Background(), services.GasEstimateRequest{
			Operation: services.GasOperationMint,
			From:      testSeller,
			TokenURI:  "ipfs://QmMeta",
		})

		require.True(t, estimate.Available, estimate.Reason)
		assert.Equal(t, uint64(120_000), estimate.GasLimit)
	})

	t.Run("rpc failure is unavailable not an error", func(t *testing.T) {
		backend := &fakeGasBackend{err: errors.New("rpc timeout"), gasPrice: gwei}
		estimate := newTestGasEstimator(t, backend, 0).Estimate(context.Background(), services.GasEstimateRequest{
			Operation: services.GasOperationList,
			From:      testSeller,
			TokenID:   "7",
			PriceEth:  "0.5",
		})

		assert.False(t, estimate.Available)
		assert.Contains(t, estimate.Reason, "rpc timeout")
		assert.Empty(t, estimate.GasCostEth)
	})

	t.Run("slow rpc times out", func(t *testing.T) {
		backend := &fakeGasBackend{block: true, gasPrice: gwei}
		started := time.Now()
		estimate := newTestGasEstimator(t, backend, 20*time.Millisecond).Estimate(context.Background(), services.GasEstimateRequest{
			Operation: services.GasOperationCancel,
			From:      testSeller,
			TokenID:   "7",
		})

		assert.False(t, estimate.Available)
		assert.Less(t, time.Since(started), 2*time.Second)
	})

	t.Run("invalid requests are unavailable", func(t *testing.T) {
		backend := &fakeGasBackend{gas: 50_000, gasPrice: gwei}
		estimator := newTestGasEstimator(t, backend, 0)

		for _, req := range []services.GasEstimateRequest{
			{Operation: "transfer", TokenID: "7"},
			{Operation: services.GasOperationList, PriceEth: "0.5"},
			{Operation: services.GasOperationBuy, TokenID: "7"},
			{Operation: services.GasOperationList, TokenID: "7", PriceEth: "0"},
			{Operation: services.GasOperationList, TokenID: "abc", PriceEth: "1"},
		} {
			estimate := estimator.Estimate(context.Background(), req)
			assert.False(t, estimate.Available, "%+v", req)
			assert.NotEmpty(t, estimate.Reason)
		}
	})
}
