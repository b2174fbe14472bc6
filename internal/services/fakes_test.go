package services_test

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rxtech-lab/nft-marketplace/internal/services"
	"github.com/rxtech-lab/nft-marketplace/internal/utils"
	"github.com/shopspring/decimal"
)

var (
	testNFTAddress         = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testMarketplaceAddress = common.HexToAddress("0x2000000000000000000000000000000000000002")
	testSeller             = common.HexToAddress("0xA11CE00000000000000000000000000000000001")
	testBuyer              = common.HexToAddress("0xBEEF000000000000000000000000000000000002")
	testOtherBuyer         = common.HexToAddress("0xCAFE000000000000000000000000000000000003")
	testChainID            = big.NewInt(11155111)
)

func testSigner(address common.Address) *bind.TransactOpts {
	return &bind.TransactOpts{From: address}
}

// fakeChainClient behaves like the marketplace and NFT contracts: listing
// requires approval, buying requires an active listing at the exact price.
type fakeChainClient struct {
	mu sync.Mutex

	owners   map[string]common.Address
	approved map[string]bool
	listings map[string]*services.OnChainListing
	uris     map[string]string

	feePercent decimal.Decimal
	feeErr     error
	ownerErr   error

	approveErr error
	listErr    error
	buyErr     error
	cancelErr  error
	mintErr    error

	calls     []string
	txCounter int
	nextToken int64
	block     int64
}

func newFakeChainClient() *fakeChainClient {
	return &fakeChainClient{
		owners:     map[string]common.Address{},
		approved:   map[string]bool{},
		listings:   map[string]*services.OnChainListing{},
		uris:       map[string]string{},
		feePercent: decimal.RequireFromString("2.5"),
		nextToken:  1,
		block:      100,
	}
}

func (f *fakeChainClient) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, c := range f.calls {
		if c == method {
			count++
		}
	}
	return count
}

func (f *fakeChainClient) record(method string) {
	f.calls = append(f.calls, method)
}

func (f *fakeChainClient) nextTx(price string) *services.TxResult {
	f.txCounter++
	f.block++
	return &services.TxResult{
		TxHash:      fmt.Sprintf("0x%064x", f.txCounter),
		PriceEth:    price,
		BlockNumber: big.NewInt(f.block),
	}
}

func (f *fakeChainClient) NFTContract() common.Address         { return testNFTAddress }
func (f *fakeChainClient) MarketplaceContract() common.Address { return testMarketplaceAddress }

func (f *fakeChainClient) IsMarketplaceApproved(ctx context.Context, conn services.Connection, tokenID *big.Int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("isApproved")
	return f.approved[tokenID.String()]
}

func (f *fakeChainClient) ApproveMarketplace(ctx context.Context, conn services.Connection, tokenID *big.Int) (*services.TxResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("approve")
	if f.approveErr != nil {
		return nil, f.approveErr
	}
	f.approved[tokenID.String()] = true
	return f.nextTx(""), nil
}

func (f *fakeChainClient) ListNFT(ctx context.Context, conn services.Connection, tokenID *big.Int, price decimal.Decimal) (*services.TxResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	if !f.approved[tokenID.String()] {
		return nil, &services.ChainError{Kind: services.ChainErrorContractReverted, Reason: "Marketplace not approved"}
	}
	f.listings[tokenID.String()] = &services.OnChainListing{
		Seller:   utils.NormalizeAddress(conn.Address.Hex()),
		PriceEth: price.String(),
		PriceWei: utils.ToWei(price),
		Active:   true,
	}
	return f.nextTx(price.String()), nil
}

func (f *fakeChainClient) BuyNFT(ctx context.Context, conn services.Connection, tokenID *big.Int, price decimal.Decimal) (*services.TxResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("buy")
	if f.buyErr != nil {
		return nil, f.buyErr
	}
	listing := f.listings[tokenID.String()]
	if listing == nil || listing.PriceWei.Cmp(utils.ToWei(price)) != 0 {
		return nil, &services.ChainError{Kind: services.ChainErrorStaleListing, Reason: "listing is no longer active"}
	}
	delete(f.listings, tokenID.String())
	delete(f.approved, tokenID.String())
	f.owners[tokenID.String()] = conn.Address

	result := f.nextTx(listing.PriceEth)
	result.Seller = listing.Seller
	return result, nil
}

func (f *fakeChainClient) CancelListing(ctx context.Context, conn services.Connection, tokenID *big.Int) (*services.TxResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("cancel")
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	if f.listings[tokenID.String()] == nil {
		return nil, &services.ChainError{Kind: services.ChainErrorContractReverted, Reason: "Listing not active"}
	}
	delete(f.listings, tokenID.String())
	return f.nextTx(""), nil
}

func (f *fakeChainClient) MintNFT(ctx context.Context, conn services.Connection, to common.Address, tokenURI string) (*services.MintResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("mint")
	if f.mintErr != nil {
		return nil, f.mintErr
	}
	tokenID := fmt.Sprintf("%d", f.nextToken)
	f.nextToken++
	f.owners[tokenID] = to
	f.uris[tokenID] = tokenURI
	tx := f.nextTx("")
	return &services.MintResult{
		TxHash:      tx.TxHash,
		TokenID:     tokenID,
		Owner:       utils.NormalizeAddress(to.Hex()),
		TokenURI:    tokenURI,
		BlockNumber: tx.BlockNumber,
		MintedAt:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}, nil
}

func (f *fakeChainClient) GetListingFromContract(ctx context.Context, tokenID *big.Int) (*services.OnChainListing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("getListing")
	listing := f.listings[tokenID.String()]
	if listing == nil {
		return nil, nil
	}
	copied := *listing
	return &copied, nil
}

func (f *fakeChainClient) GetPlatformFee(ctx context.Context) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.feeErr != nil {
		return decimal.RequireFromString("2.5")
	}
	return f.feePercent
}

func (f *fakeChainClient) PlatformFeeAt(ctx context.Context, blockNumber *big.Int) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("platformFeeAt")
	if f.feeErr != nil {
		return decimal.Zero, f.feeErr
	}
	return f.feePercent, nil
}

func (f *fakeChainClient) OwnerOf(ctx context.Context, tokenID *big.Int) (common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ownerErr != nil {
		return common.Address{}, f.ownerErr
	}
	owner, ok := f.owners[tokenID.String()]
	if !ok {
		return common.Address{}, &services.ChainError{Kind: services.ChainErrorContractReverted, Reason: "ERC721: invalid token ID"}
	}
	return owner, nil
}

func (f *fakeChainClient) TokenURI(ctx context.Context, tokenID *big.Int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uri, ok := f.uris[tokenID.String()]
	if !ok {
		return "", &services.ChainError{Kind: services.ChainErrorContractReverted, Reason: "ERC721: invalid token ID"}
	}
	return uri, nil
}

func (f *fakeChainClient) TotalSupply(ctx context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return big.NewInt(f.nextToken - 1), nil
}

// fakeContentStore hands out deterministic hashes and serves pinned JSON back
type fakeContentStore struct {
	mu       sync.Mutex
	pinned   map[string][]byte
	fileErr  error
	jsonErr  error
	fetchErr error
	counter  int
	pinNames []string
}

func newFakeContentStore() *fakeContentStore {
	return &fakeContentStore{pinned: map[string][]byte{}}
}

func (f *fakeContentStore) PinFile(ctx context.Context, name, fileName, contentType string, data []byte) (*services.PinResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fileErr != nil {
		return nil, f.fileErr
	}
	f.counter++
	hash := fmt.Sprintf("QmImage%d", f.counter)
	f.pinned[hash] = data
	f.pinNames = append(f.pinNames, name)
	return &services.PinResult{IpfsHash: hash, PinSize: int64(len(data))}, nil
}

func (f *fakeContentStore) PinJSON(ctx context.Context, name string, content interface{}) (*services.PinResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.jsonErr != nil {
		return nil, f.jsonErr
	}
	data, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	f.counter++
	hash := fmt.Sprintf("QmMeta%d", f.counter)
	f.pinned[hash] = data
	f.pinNames = append(f.pinNames, name)
	return &services.PinResult{IpfsHash: hash, PinSize: int64(len(data))}, nil
}

func (f *fakeContentStore) Fetch(ctx context.Context, uri string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	data, ok := f.pinned[utils.IPFSHash(uri)]
	if !ok {
		return nil, &services.ContentStoreError{Op: "fetch", Err: fmt.Errorf("%s not pinned", uri)}
	}
	return data, nil
}

func (f *fakeContentStore) TestAuthentication(ctx context.Context) error {
	return nil
}
