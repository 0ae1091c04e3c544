package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/laurent357/Sniping-bot/internal/events"
	"github.com/laurent357/Sniping-bot/internal/storage/models"
)

// memoryStore is an in-memory Storage used to test the recorder wiring.
type memoryStore struct {
	mu           sync.Mutex
	transactions map[string]*models.Transaction
	pools        map[string]*models.Pool
	strategies   map[string]*models.Strategy
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		transactions: make(map[string]*models.Transaction),
		pools:        make(map[string]*models.Pool),
		strategies:   make(map[string]*models.Strategy),
	}
}

func (m *memoryStore) SaveTransaction(_ context.Context, tx *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *tx
	m.transactions[tx.Signature] = &stored
	return nil
}

func (m *memoryStore) GetTransaction(_ context.Context, signature string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[signature]
	if !ok {
		return nil, context.Canceled
	}
	stored := *tx
	return &stored, nil
}

func (m *memoryStore) ListTransactions(_ context.Context, status string, limit, offset int) ([]*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Transaction
	for _, tx := range m.transactions {
		if status == "" || tx.Status == status {
			stored := *tx
			out = append(out, &stored)
		}
	}
	return out, nil
}

func (m *memoryStore) UpdateTransactionStatus(_ context.Context, signature, status, errorMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tx, ok := m.transactions[signature]; ok {
		tx.Status = status
		tx.ErrorMessage = errorMsg
	}
	return nil
}

func (m *memoryStore) SavePool(_ context.Context, pool *models.Pool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *pool
	m.pools[pool.PoolID] = &stored
	return nil
}

func (m *memoryStore) GetPool(_ context.Context, poolID string) (*models.Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pool, ok := m.pools[poolID]
	if !ok {
		return nil, context.Canceled
	}
	stored := *pool
	return &stored, nil
}

func (m *memoryStore) SaveStrategy(_ context.Context, strategy *models.Strategy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *strategy
	m.strategies[strategy.Name] = &stored
	return nil
}

func (m *memoryStore) ListStrategies(_ context.Context) ([]*models.Strategy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Strategy
	for _, s := range m.strategies {
		stored := *s
		out = append(out, &stored)
	}
	return out, nil
}

func (m *memoryStore) RunMigrations() error { return nil }

func TestRecorderPersistsTransactionLifecycle(t *testing.T) {
	store := newMemoryStore()
	bus := events.NewBus(zaptest.NewLogger(t), 8)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	recorder := NewRecorder(store, zaptest.NewLogger(t))
	recorder.Attach(bus)
	defer recorder.Detach()

	ctx := context.Background()
	require.NoError(t, bus.PublishSync(ctx, events.TransactionSubmittedEvent{
		BaseEvent:     events.NewBase(events.TransactionSubmitted),
		TransactionID: "id-1",
		Signature:     "SIG1",
		TokenAddress:  "MintA",
		StrategyName:  "default",
		AmountSOL:     decimal.RequireFromString("1.5"),
	}))

	tx, err := store.GetTransaction(ctx, "SIG1")
	require.NoError(t, err)
	assert.Equal(t, "pending", tx.Status)
	assert.Equal(t, "default", tx.StrategyName)

	require.NoError(t, bus.PublishSync(ctx, events.TransactionCompletedEvent{
		BaseEvent: events.NewBase(events.TransactionCompleted),
		Signature: "SIG1",
	}))

	tx, err = store.GetTransaction(ctx, "SIG1")
	require.NoError(t, err)
	assert.Equal(t, "completed", tx.Status)
}

func TestRecorderPersistsPools(t *testing.T) {
	store := newMemoryStore()
	bus := events.NewBus(zaptest.NewLogger(t), 8)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	recorder := NewRecorder(store, zaptest.NewLogger(t))
	recorder.Attach(bus)
	defer recorder.Detach()

	ctx := context.Background()
	require.NoError(t, bus.PublishSync(ctx, events.OpportunityDetectedEvent{
		BaseEvent:    events.NewBase(events.OpportunityDetected),
		TokenAddress: "MintA",
		PoolID:       "pool-1",
		Venue:        "jupiter",
		Price:        decimal.RequireFromString("1.5"),
		Liquidity:    decimal.RequireFromString("20000"),
	}))

	pool, err := store.GetPool(ctx, "pool-1")
	require.NoError(t, err)
	assert.Equal(t, "jupiter", pool.Venue)
	assert.True(t, pool.LiquidityUSD.Equal(decimal.RequireFromString("20000")))
}

func TestRecorderIgnoresPreSubmissionFailures(t *testing.T) {
	store := newMemoryStore()
	bus := events.NewBus(zaptest.NewLogger(t), 8)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	recorder := NewRecorder(store, zaptest.NewLogger(t))
	recorder.Attach(bus)
	defer recorder.Detach()

	// A security rejection has no signature and no row to update.
	require.NoError(t, bus.PublishSync(context.Background(), events.TransactionFailedEvent{
		BaseEvent:    events.NewBase(events.TransactionFailed),
		TokenAddress: "MintA",
		Reason:       "security check failed: blacklisted",
	}))

	txs, err := store.ListTransactions(context.Background(), "", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, txs)
}
