package txnmgr

import (
	"context"

	"github.com/NicolasMassart/tessera/internal/msgs"
	"github.com/NicolasMassart/tessera/internal/txstore"
	"github.com/NicolasMassart/tessera/pkg/log"
	"github.com/NicolasMassart/tessera/pkg/payload"
	"github.com/NicolasMassart/tessera/pkg/persistence"
	"github.com/NicolasMassart/tessera/pkg/tmerrors"
	"github.com/NicolasMassart/tessera/pkg/tmtypes"

	"github.com/hyperledger/firefly-common/pkg/i18n"
)

// ResendType selects which of the two resend sub-operations runs.
type ResendType int

const (
	ResendAll ResendType = iota
	ResendIndividual
)

// ResendRequest is the input to Resend.
type ResendRequest struct {
	Type      ResendType
	PublicKey tmtypes.PublicKey
	Key       *tmtypes.MessageHash // required for ResendIndividual
}

// ResendResponse carries a single payload back to the caller in
// INDIVIDUAL mode; it is empty for ALL mode, which publishes instead of
// returning.
type ResendResponse struct {
	Payload *tmtypes.EncodedPayload
}

// Resend implements both bulk backfill (ALL) and single-message
// recovery (INDIVIDUAL) for a peer's public key R.
func (tm *TransactionManager) Resend(ctx context.Context, req *ResendRequest) (*ResendResponse, error) {
	if req.Type == ResendIndividual {
		return tm.resendIndividual(ctx, req.PublicKey, req.Key)
	}
	return nil, tm.resendAll(ctx, req.PublicKey)
}

// resendAll pages through every stored transaction, publishing every
// one this peer is party to. A publish failure for one item is logged
// and does not stop the scan; a failure to resolve which of our own
// keys a peer's own payload was addressed to is the one fatal condition
// in this mode (KeyNotFound), since that peer cannot otherwise be
// backfilled at all.
func (tm *TransactionManager) resendAll(ctx context.Context, peer tmtypes.PublicKey) error {
	return tm.persistence.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		total, err := tm.txStore.Count(ctx, dbTX)
		if err != nil {
			return err
		}
		for offset := int64(0); offset < total; offset += int64(tm.resendFetchSize) {
			items, err := tm.txStore.RetrievePage(ctx, dbTX, int(offset), tm.resendFetchSize)
			if err != nil {
				return err
			}
			for _, item := range items {
				if err := tm.resendOne(ctx, item, peer); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (tm *TransactionManager) resendOne(ctx context.Context, item txstore.Item, peer tmtypes.PublicKey) error {
	p := item.Payload
	isOwn := p.SenderKey == peer
	isRecipient := p.IndexOfRecipient(peer) >= 0
	if !isOwn && !isRecipient {
		return nil
	}

	if isOwn {
		recoveredKey, found := tm.searchForRecipientKey(ctx, p)
		if !found {
			return tmerrors.KeyNotFound(ctx, item.Hash.String())
		}
		withKey := p.Clone()
		if withKey.IndexOfRecipient(recoveredKey) < 0 {
			withKey.RecipientKeys = append(withKey.RecipientKeys, recoveredKey)
			withKey.RecipientBoxes = append(withKey.RecipientBoxes, nil)
		}
		tm.publishOrLog(ctx, withKey, peer)
		return nil
	}

	projected, err := payload.ForRecipient(ctx, p, peer)
	if err != nil {
		log.L(ctx).Warnf("resend: %s is not a recipient of %s, skipping: %v", peer, item.Hash, err)
		return nil
	}
	tm.publishOrLog(ctx, projected, peer)
	return nil
}

// resendIndividual returns exactly one message to the caller rather
// than publishing it. Per the design notes, a key-search failure on
// this path raises a generic error rather than the KeyNotFound used by
// ALL mode - an asymmetry preserved here as specified rather than
// silently "fixed".
func (tm *TransactionManager) resendIndividual(ctx context.Context, peer tmtypes.PublicKey, key *tmtypes.MessageHash) (*ResendResponse, error) {
	if key == nil {
		return nil, i18n.NewError(ctx, msgs.MsgTransactionNotFound, "")
	}
	var resp *ResendResponse
	err := tm.persistence.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		p, found, err := tm.txStore.RetrieveByHash(ctx, dbTX, *key)
		if err != nil {
			return err
		}
		if !found {
			return tmerrors.TransactionNotFound(ctx, key.String())
		}

		if p.SenderKey == peer {
			recoveredKey, found := tm.searchForRecipientKey(ctx, p)
			if !found {
				return i18n.NewError(ctx, msgs.MsgKeyNotFound, key.String())
			}
			withKey := p.Clone()
			if withKey.IndexOfRecipient(recoveredKey) < 0 {
				withKey.RecipientKeys = append(withKey.RecipientKeys, recoveredKey)
				withKey.RecipientBoxes = append(withKey.RecipientBoxes, nil)
			}
			resp = &ResendResponse{Payload: withKey}
			return nil
		}

		projected, err := payload.ForRecipient(ctx, p, peer)
		if err != nil {
			return err
		}
		resp = &ResendResponse{Payload: projected}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (tm *TransactionManager) publishOrLog(ctx context.Context, p *tmtypes.EncodedPayload, recipient tmtypes.PublicKey) {
	if tm.publisher == nil {
		return
	}
	if err := tm.publisher.Publish(ctx, p, recipient); err != nil {
		log.L(ctx).Warnf("resend publish to %s failed, continuing: %v", recipient, err)
	}
}

// searchForRecipientKey tries every locally-held key against p until
// one decrypts, recovering which local key was the intended recipient
// of a payload the peer originally sent. Used when backfilling a peer
// with their own prior messages.
func (tm *TransactionManager) searchForRecipientKey(ctx context.Context, p *tmtypes.EncodedPayload) (tmtypes.PublicKey, bool) {
	for _, k := range tm.enclave.PublicKeys() {
		if _, err := tm.enclave.Decrypt(ctx, p, k); err == nil {
			return k, true
		}
	}
	return tmtypes.PublicKey{}, false
}
