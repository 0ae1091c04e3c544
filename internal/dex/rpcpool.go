// internal/dex/rpcpool.go
package dex

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// RPCPool rotates program-account queries across a list of Solana RPC
// endpoints. A request that fails on one endpoint is retried once on
// the next, so a single flaky provider does not stall a poll cycle.
type RPCPool struct {
	mu      sync.Mutex
	clients []*rpc.Client
	index   int
	logger  *zap.Logger
}

func NewRPCPool(endpoints []string, logger *zap.Logger) (*RPCPool, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("no rpc endpoints configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	clients := make([]*rpc.Client, 0, len(endpoints))
	for _, url := range endpoints {
		clients = append(clients, rpc.New(url))
	}
	return &RPCPool{
		clients: clients,
		logger:  logger.Named("rpc_pool"),
	}, nil
}

// next returns the next client in round-robin order.
func (p *RPCPool) next() *rpc.Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	client := p.clients[p.index]
	p.index = (p.index + 1) % len(p.clients)
	return client
}

// Size reports how many endpoints the pool currently holds.
func (p *RPCPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// GetProgramAccountsWithOpts queries via the next endpoint, failing
// over once when the pool has more than one.
func (p *RPCPool) GetProgramAccountsWithOpts(ctx context.Context, programID solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	result, err := p.next().GetProgramAccountsWithOpts(ctx, programID, opts)
	if err == nil || p.Size() < 2 {
		return result, err
	}
	if ctx.Err() != nil {
		return nil, err
	}
	p.logger.Debug("rpc request failed, retrying on next endpoint", zap.Error(err))
	return p.next().GetProgramAccountsWithOpts(ctx, programID, opts)
}

// PerformHealthChecks drops endpoints that fail a health probe. At
// least one client is always kept so the pool never goes empty.
func (p *RPCPool) PerformHealthChecks(ctx context.Context) {
	p.mu.Lock()
	clients := make([]*rpc.Client, len(p.clients))
	copy(clients, p.clients)
	p.mu.Unlock()

	var healthy []*rpc.Client
	for i, client := range clients {
		probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := client.GetHealth(probeCtx)
		cancel()
		if err != nil {
			p.logger.Warn("rpc endpoint unhealthy, removing from pool",
				zap.Int("endpoint", i), zap.Error(err))
			continue
		}
		healthy = append(healthy, client)
	}
	if len(healthy) == 0 {
		return
	}

	p.mu.Lock()
	p.clients = healthy
	p.index = 0
	p.mu.Unlock()
}
