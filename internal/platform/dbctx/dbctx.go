package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// WithTx returns a copy of dbc bound to tx.
func (dbc Context) WithTx(tx *gorm.DB) Context {
	return Context{Ctx: dbc.Ctx, Tx: tx}
}

// DB picks the transaction when one is bound and falls back to db otherwise.
func (dbc Context) DB(db *gorm.DB) *gorm.DB {
	base := db
	if dbc.Tx != nil {
		base = dbc.Tx
	}
	if dbc.Ctx == nil {
		return base.WithContext(context.Background())
	}
	return base.WithContext(dbc.Ctx)
}
