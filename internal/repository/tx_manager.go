package repository

import (
	"context"

	"gorm.io/gorm"
)

type txContextKey string

const txKey txContextKey = "gorm_tx"

// TxManager runs a function inside one database transaction. Repositories called with the
// context passed to fn join that transaction through GetDB.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type txManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) TxManager {
	return &txManager{db: db}
}

// RunInTx reuses an enclosing transaction when ctx already carries one
func (t *txManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if _, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey, tx))
	})
}

// GetDB returns the transaction carried by ctx, or the root DB when there is none
func GetDB(ctx context.Context, rootDB *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return rootDB.WithContext(ctx)
}
