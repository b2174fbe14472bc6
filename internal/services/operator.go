package services

import (
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
)

// Operator supplies the connection the HTTP and MCP surfaces act with
type Operator interface {
	Connection() (Connection, error)
}

type keyedOperator struct {
	signer      *bind.TransactOpts
	connections ConnectionService
	conn        Connection
}

// NewKeyedOperator connects the configured signer once and reuses that connection
func NewKeyedOperator(signer *bind.TransactOpts, connections ConnectionService) Operator {
	return &keyedOperator{
		signer:      signer,
		connections: connections,
		conn:        connections.Connect(signer, connections.TargetChainID()),
	}
}

func (o *keyedOperator) Connection() (Connection, error) {
	return o.conn, nil
}

type readOnlyOperator struct{}

// NewReadOnlyOperator is used when no signing key is configured
func NewReadOnlyOperator() Operator {
	return readOnlyOperator{}
}

func (readOnlyOperator) Connection() (Connection, error) {
	return Connection{}, ErrNoSigner
}
