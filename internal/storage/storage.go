// internal/storage/storage.go
package storage

import (
	"context"

	"github.com/laurent357/Sniping-bot/internal/storage/models"
)

// Storage is the durable backend for transactions, pools and strategies.
type Storage interface {
	// Transactions
	SaveTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, signature string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, status string, limit, offset int) ([]*models.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, signature string, status string, errorMsg string) error

	// Pools
	SavePool(ctx context.Context, pool *models.Pool) error
	GetPool(ctx context.Context, poolID string) (*models.Pool, error)

	// Strategies
	SaveStrategy(ctx context.Context, strategy *models.Strategy) error
	ListStrategies(ctx context.Context) ([]*models.Strategy, error)

	RunMigrations() error
}
