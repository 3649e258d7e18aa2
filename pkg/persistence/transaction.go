package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/NicolasMassart/tessera/pkg/log"
)

// DBTX is the handle passed down into every DAO call inside a
// Transaction: the raw *gorm.DB bound to the active transaction, plus
// hooks other collaborators sharing the same commit boundary (such as
// the reference PartyInfo/ResendManager) can register against.
type DBTX interface {
	DB() *gorm.DB
	AddPreCommit(fn func(ctx context.Context) error)
	AddPostCommit(fn func(ctx context.Context))
	AddFinalizer(fn func(ctx context.Context, err error))
}

type dbtx struct {
	db          *gorm.DB
	preCommits  []func(ctx context.Context) error
	postCommits []func(ctx context.Context)
	finalizers  []func(ctx context.Context, err error)
}

func (d *dbtx) DB() *gorm.DB { return d.db }

func (d *dbtx) AddPreCommit(fn func(ctx context.Context) error) {
	d.preCommits = append(d.preCommits, fn)
}

func (d *dbtx) AddPostCommit(fn func(ctx context.Context)) {
	d.postCommits = append(d.postCommits, fn)
}

func (d *dbtx) AddFinalizer(fn func(ctx context.Context, err error)) {
	d.finalizers = append(d.finalizers, fn)
}

// Transaction runs fn inside a single gorm transaction. A panic inside
// fn is recovered, rolls the transaction back, and is re-raised after
// finalizers run, so callers see the original panic rather than a
// confusing rollback error.
func (gp *provider) Transaction(parentCtx context.Context, fn func(ctx context.Context, dbTX DBTX) error) (txErr error) {
	tx := &dbtx{}
	var panicked interface{}

	txErr = gp.db.WithContext(parentCtx).Transaction(func(gdb *gorm.DB) (err error) {
		tx.db = gdb
		defer func() {
			if r := recover(); r != nil {
				panicked = r
				err = gdb.Error
				if err == nil {
					err = errRolledBackByPanic
				}
			}
		}()
		if err := fn(parentCtx, tx); err != nil {
			return err
		}
		for _, pc := range tx.preCommits {
			if err := pc(parentCtx); err != nil {
				return err
			}
		}
		return nil
	})

	for _, f := range tx.finalizers {
		f(parentCtx, txErr)
	}

	if panicked != nil {
		log.L(parentCtx).Errorf("panic inside db transaction, rolled back: %v", panicked)
		panic(panicked)
	}

	if txErr == nil {
		for _, pc := range tx.postCommits {
			pc(parentCtx)
		}
	}
	return txErr
}

var errRolledBackByPanic = &rolledBackByPanicError{}

type rolledBackByPanicError struct{}

func (*rolledBackByPanicError) Error() string { return "transaction rolled back by panic" }

// NOTX returns a DBTX not bound to any transaction, for call sites
// (such as StorePayload) whose single write self-commits outside any
// enclosing transaction boundary.
func NOTX(db *gorm.DB) DBTX {
	return &dbtx{db: db}
}
