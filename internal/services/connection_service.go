package services

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Connection is the explicit wallet context threaded through every mutating call
type Connection struct {
	Signer  *bind.TransactOpts
	Address common.Address
	ChainID *big.Int
	// Epoch identifies the connection generation the operation started under
	Epoch uint64
}

// ConnectionService hands out connections and tracks the current epoch per
// wallet. Reconnecting or switching chain bumps the epoch so operations started
// under the old connection are rejected instead of running against stale state.
type ConnectionService interface {
	Connect(signer *bind.TransactOpts, chainID *big.Int) Connection
	Disconnect(address common.Address)
	Validate(conn Connection) error
	TargetChainID() *big.Int
}

type connectionService struct {
	targetChainID *big.Int

	mu     sync.Mutex
	epochs map[common.Address]uint64
}

func NewConnectionService(targetChainID *big.Int) ConnectionService {
	return &connectionService{
		targetChainID: new(big.Int).Set(targetChainID),
		epochs:        make(map[common.Address]uint64),
	}
}

func (s *connectionService) Connect(signer *bind.TransactOpts, chainID *big.Int) Connection {
	s.mu.Lock()
	defer s.mu.Unlock()

	var address common.Address
	if signer != nil {
		address = signer.From
	}
	s.epochs[address]++
	return Connection{
		Signer:  signer,
		Address: address,
		ChainID: chainID,
		Epoch:   s.epochs[address],
	}
}

func (s *connectionService) Disconnect(address common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epochs[address]++
}

func (s *connectionService) Validate(conn Connection) error {
	if conn.Signer == nil {
		return ErrNoSigner
	}

	s.mu.Lock()
	current, ok := s.epochs[conn.Address]
	s.mu.Unlock()
	if !ok || current != conn.Epoch {
		return ErrStaleConnection
	}

	if conn.ChainID == nil || conn.ChainID.Cmp(s.targetChainID) != 0 {
		return newChainError(ChainErrorNetworkMismatch, "connected to chain "+chainIDString(conn.ChainID)+", expected "+s.targetChainID.String(), nil)
	}
	return nil
}

func (s *connectionService) TargetChainID() *big.Int {
	return new(big.Int).Set(s.targetChainID)
}

func chainIDString(id *big.Int) string {
	if id == nil {
		return "unknown"
	}
	return id.String()
}
