// Package txnmgr implements the Transaction Manager core (C9): the
// mediator behind the five public operations (send, sendSignedTransaction,
// storePayload, receive, store/delete/resend) that orchestrates the
// Enclave, the PSV validator, the payload codec, and the two
// persistence stores.
package txnmgr

import (
	"context"

	"github.com/NicolasMassart/tessera/internal/rawtxstore"
	"github.com/NicolasMassart/tessera/internal/txstore"
	"github.com/NicolasMassart/tessera/pkg/confutil"
	"github.com/NicolasMassart/tessera/pkg/enclave"
	"github.com/NicolasMassart/tessera/pkg/partyinfo"
	"github.com/NicolasMassart/tessera/pkg/persistence"
	"github.com/NicolasMassart/tessera/pkg/resendmgr"
	"github.com/NicolasMassart/tessera/pkg/tmconf"
	"github.com/NicolasMassart/tessera/pkg/tmtypes"
)

// TxStore is the subset of the gorm-backed store this manager depends
// on, narrowed to an interface so tests can substitute a sqlmock-backed
// or in-memory implementation.
type TxStore interface {
	Save(ctx context.Context, dbTX persistence.DBTX, hash tmtypes.MessageHash, p *tmtypes.EncodedPayload) error
	RetrieveByHash(ctx context.Context, dbTX persistence.DBTX, hash tmtypes.MessageHash) (*tmtypes.EncodedPayload, bool, error)
	Delete(ctx context.Context, dbTX persistence.DBTX, hash tmtypes.MessageHash) error
	Count(ctx context.Context, dbTX persistence.DBTX) (int64, error)
	RetrievePage(ctx context.Context, dbTX persistence.DBTX, offset, limit int) ([]txstore.Item, error)
}

// RawTxStore is the subset of the raw-transaction store this manager
// depends on.
type RawTxStore interface {
	Save(ctx context.Context, dbTX persistence.DBTX, hash tmtypes.MessageHash, rt *rawtxstore.RawTransaction) error
	RetrieveByHash(ctx context.Context, dbTX persistence.DBTX, hash tmtypes.MessageHash) (*rawtxstore.RawTransaction, bool, error)
	Delete(ctx context.Context, dbTX persistence.DBTX, hash tmtypes.MessageHash) error
}

// TransactionManager is the mediator: all five public operations hang
// off this type.
type TransactionManager struct {
	persistence     persistence.Persistence
	enclave         enclave.Enclave
	publisher       partyinfo.Publisher
	resendManager   resendmgr.Manager
	txStore         TxStore
	rawTxStore      RawTxStore
	resendFetchSize int
}

// New wires the mediator together. conf may be nil, in which case
// tmconf.TxnManagerDefaults is used.
func New(
	p persistence.Persistence,
	e enclave.Enclave,
	publisher partyinfo.Publisher,
	resendManager resendmgr.Manager,
	txStore TxStore,
	rawTxStore RawTxStore,
	conf *tmconf.TxnManagerConfig,
) *TransactionManager {
	if conf == nil {
		conf = tmconf.TxnManagerDefaults
	}
	return &TransactionManager{
		persistence:     p,
		enclave:         e,
		publisher:       publisher,
		resendManager:   resendManager,
		txStore:         txStore,
		rawTxStore:      rawTxStore,
		resendFetchSize: confutil.IntMin(conf.ResendFetchSize, 1, 100),
	}
}

// dedupeKeys preserves first-seen order while removing duplicates - used
// to build the final recipient list from request recipients, the
// sender, and the enclave's configured forwarding keys.
func dedupeKeys(lists ...[]tmtypes.PublicKey) []tmtypes.PublicKey {
	seen := make(map[tmtypes.PublicKey]struct{})
	out := make([]tmtypes.PublicKey, 0)
	for _, list := range lists {
		for _, k := range list {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}
