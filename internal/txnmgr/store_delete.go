package txnmgr

import (
	"context"

	"github.com/NicolasMassart/tessera/internal/rawtxstore"
	"github.com/NicolasMassart/tessera/pkg/hashfactory"
	"github.com/NicolasMassart/tessera/pkg/persistence"
	"github.com/NicolasMassart/tessera/pkg/tmtypes"
)

// StoreRequest is the input to Store.
type StoreRequest struct {
	Payload []byte
	From    *tmtypes.PublicKey
}

// StoreResponse is returned by Store.
type StoreResponse struct {
	Key tmtypes.MessageHash
}

// Store pre-stages a raw transaction for a later SendSignedTransaction
// call: it encrypts with the sender-only scheme (no recipients yet) and
// persists the result keyed by the hash of its cipher-text.
func (tm *TransactionManager) Store(ctx context.Context, req *StoreRequest) (*StoreResponse, error) {
	sender := tm.enclave.DefaultPublicKey()
	if req.From != nil {
		sender = *req.From
	}

	var resp *StoreResponse
	err := tm.persistence.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		rt, err := tm.enclave.EncryptRawPayload(ctx, req.Payload, sender)
		if err != nil {
			return err
		}
		hash := hashfactory.Hash(rt.CipherText)
		if err := tm.rawTxStore.Save(ctx, dbTX, hash, &rawtxstore.RawTransaction{
			EncryptedPayload: rt.CipherText,
			EncryptedKey:     rt.EncryptedKey,
			Nonce:            rt.Nonce,
			Sender:           rt.Sender,
		}); err != nil {
			return err
		}
		resp = &StoreResponse{Key: hash}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// DeleteRequest is the input to Delete.
type DeleteRequest struct {
	Key tmtypes.MessageHash
}

// Delete removes a stored transaction. Idempotent: deleting an already-
// absent hash is not an error. Delete never publishes anything.
func (tm *TransactionManager) Delete(ctx context.Context, req *DeleteRequest) error {
	return tm.persistence.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		return tm.txStore.Delete(ctx, dbTX, req.Key)
	})
}
