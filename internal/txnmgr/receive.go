package txnmgr

import (
	"context"

	"github.com/NicolasMassart/tessera/pkg/persistence"
	"github.com/NicolasMassart/tessera/pkg/tmerrors"
	"github.com/NicolasMassart/tessera/pkg/tmtypes"
)

// ReceiveRequest is the input to Receive.
type ReceiveRequest struct {
	Key tmtypes.MessageHash
	To  *tmtypes.PublicKey
}

// ReceiveResponse carries the decrypted plaintext.
type ReceiveResponse struct {
	Payload []byte
}

// Receive decrypts a stored transaction for the caller. If no recipient
// key is given, every locally-held key is tried in turn and the first
// that decrypts successfully wins; every other key's decryption failure
// is treated uniformly as "wrong key, try next" rather than surfaced.
func (tm *TransactionManager) Receive(ctx context.Context, req *ReceiveRequest) (*ReceiveResponse, error) {
	var resp *ReceiveResponse
	err := tm.persistence.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		p, found, err := tm.txStore.RetrieveByHash(ctx, dbTX, req.Key)
		if err != nil {
			return err
		}
		if !found {
			return tmerrors.TransactionNotFound(ctx, req.Key.String())
		}

		if req.To != nil {
			plaintext, err := tm.enclave.Decrypt(ctx, p, *req.To)
			if err != nil {
				return err
			}
			resp = &ReceiveResponse{Payload: plaintext}
			return nil
		}

		for _, k := range tm.enclave.PublicKeys() {
			if plaintext, err := tm.enclave.Decrypt(ctx, p, k); err == nil {
				resp = &ReceiveResponse{Payload: plaintext}
				return nil
			}
		}
		return tmerrors.NoRecipientKeyFound(ctx, req.Key.String())
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
