// Package resendmgr defines the ResendManager sink (C8) for inbound
// payloads that originated from this node and are coming back via a
// peer, and a local reference implementation that folds them back into
// this node's own transaction store.
package resendmgr

import (
	"context"

	"github.com/NicolasMassart/tessera/pkg/enclave"
	"github.com/NicolasMassart/tessera/pkg/hashfactory"
	"github.com/NicolasMassart/tessera/pkg/payload"
	"github.com/NicolasMassart/tessera/pkg/persistence"
	"github.com/NicolasMassart/tessera/pkg/tmerrors"
	"github.com/NicolasMassart/tessera/pkg/tmtypes"
)

// Manager accepts an inbound payload whose sender key is one of this
// node's own keys - the TransactionManager's StorePayload hands these
// off here instead of persisting them directly, leaving the decision of
// how to reconcile "our own message, seen again" to this component.
type Manager interface {
	AcceptOwnMessage(ctx context.Context, dbTX persistence.DBTX, rawBytes []byte) error
}

// TxStore is the subset of the transaction store the local reference
// Manager needs.
type TxStore interface {
	Save(ctx context.Context, dbTX persistence.DBTX, hash tmtypes.MessageHash, p *tmtypes.EncodedPayload) error
}

// Local treats "our own message coming back from a peer" as an ordinary
// backfill: it resolves which of our own keys the payload was destined
// for, appends that key to the recipient list if absent, and persists
// it into the same store the rest of the system reads from, so
// subsequent Resend/Receive calls see it.
type Local struct {
	Enclave enclave.Enclave
	Store   TxStore
}

func New(e enclave.Enclave, store TxStore) *Local {
	return &Local{Enclave: e, Store: store}
}

func (m *Local) AcceptOwnMessage(ctx context.Context, dbTX persistence.DBTX, rawBytes []byte) error {
	p, err := payload.Decode(ctx, rawBytes)
	if err != nil {
		return err
	}

	hash := hashfactory.Hash(p.CipherText)

	if p.IndexOfRecipient(m.Enclave.DefaultPublicKey()) < 0 {
		recoveredKey, found := searchForRecipientKey(ctx, m.Enclave, p)
		if !found {
			return tmerrors.KeyNotFound(ctx, hash.String())
		}
		p.RecipientKeys = append(p.RecipientKeys, recoveredKey)
		p.RecipientBoxes = append(p.RecipientBoxes, emptyBoxPlaceholder())
	}

	return m.Store.Save(ctx, dbTX, hash, p)
}

func emptyBoxPlaceholder() []byte { return nil }

// searchForRecipientKey is the same "try every local key until one
// decrypts" routine TransactionManager.Receive uses; it is duplicated
// here (rather than imported) because importing the txnmgr package from
// here would create an import cycle - txnmgr is the one package that
// wires this reference Manager together with the rest of the core.
func searchForRecipientKey(ctx context.Context, e enclave.Enclave, p *tmtypes.EncodedPayload) (tmtypes.PublicKey, bool) {
	for _, k := range e.PublicKeys() {
		if _, err := e.Decrypt(ctx, p, k); err == nil {
			return k, true
		}
	}
	return tmtypes.PublicKey{}, false
}
