package txnmgr

import (
	"context"

	"github.com/NicolasMassart/tessera/internal/msgs"
	"github.com/NicolasMassart/tessera/internal/psv"
	"github.com/NicolasMassart/tessera/pkg/enclave"
	"github.com/NicolasMassart/tessera/pkg/hashfactory"
	"github.com/NicolasMassart/tessera/pkg/log"
	"github.com/NicolasMassart/tessera/pkg/payload"
	"github.com/NicolasMassart/tessera/pkg/persistence"
	"github.com/NicolasMassart/tessera/pkg/tmerrors"
	"github.com/NicolasMassart/tessera/pkg/tmtypes"

	"github.com/hyperledger/firefly-common/pkg/i18n"
)

// SendRequest is the input to Send.
type SendRequest struct {
	Payload      []byte
	From         *tmtypes.PublicKey
	To           []tmtypes.PublicKey
	PrivacyMode  tmtypes.PrivacyMode
	ExecHash     []byte
	AffectedTxns []tmtypes.AffectedTransaction
}

// SendSignedTransactionRequest is the input to SendSignedTransaction:
// instead of raw plaintext, it references a previously Store()d raw
// transaction by hash.
type SendSignedTransactionRequest struct {
	Hash         tmtypes.MessageHash
	To           []tmtypes.PublicKey
	PrivacyMode  tmtypes.PrivacyMode
	ExecHash     []byte
	AffectedTxns []tmtypes.AffectedTransaction
}

// SendResponse is returned by both outbound send operations.
type SendResponse struct {
	Key tmtypes.MessageHash
}

// Send encrypts raw plaintext for a fresh set of recipients, persists
// it, and best-effort publishes it to every recipient. See the outbound
// pipeline description in this module's design notes: ACOTH resolution
// and PSV checks run before encryption, and a missing ACOTH or any PSV
// mismatch is always fatal on this path.
func (tm *TransactionManager) Send(ctx context.Context, req *SendRequest) (*SendResponse, error) {
	sender := tm.enclave.DefaultPublicKey()
	if req.From != nil {
		sender = *req.From
	}
	recipients := dedupeKeys(req.To, []tmtypes.PublicKey{sender}, tm.enclave.ForwardingKeys())

	var resp *SendResponse
	var encoded *tmtypes.EncodedPayload
	err := tm.persistence.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		resolved, err := tm.resolveOutboundACOTHs(ctx, dbTX, req.AffectedTxns)
		if err != nil {
			return err
		}
		if err := tm.validateOutboundPSV(ctx, req.PrivacyMode, recipients, resolved); err != nil {
			return err
		}

		var encErr error
		encoded, encErr = tm.enclave.Encrypt(ctx, req.Payload, sender, recipients, req.PrivacyMode, req.AffectedTxns, req.ExecHash)
		if encErr != nil {
			return encErr
		}
		hash := hashOf(encoded)
		if err := tm.txStore.Save(ctx, dbTX, hash, encoded); err != nil {
			return err
		}
		resp = &SendResponse{Key: hash}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Publishing is deliberately outside the persisted-record's database
	// transaction: the store of record must never be lost to a flaky
	// peer, and a peer that is offline now will catch up via resend.
	tm.publishAll(ctx, encoded, recipients)
	return resp, nil
}

// SendSignedTransaction is Send's sibling for a transaction whose raw
// payload was pre-staged via Store: the sender key comes from the
// referenced EncryptedRawTransaction rather than the request.
func (tm *TransactionManager) SendSignedTransaction(ctx context.Context, req *SendSignedTransactionRequest) (*SendResponse, error) {
	var resp *SendResponse
	var encoded *tmtypes.EncodedPayload
	var recipients []tmtypes.PublicKey
	err := tm.persistence.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		raw, found, err := tm.rawTxStore.RetrieveByHash(ctx, dbTX, req.Hash)
		if err != nil {
			return err
		}
		if !found {
			return tmerrors.TransactionNotFound(ctx, req.Hash.String())
		}

		recipients = dedupeKeys(req.To, []tmtypes.PublicKey{raw.Sender}, tm.enclave.ForwardingKeys())

		resolved, err := tm.resolveOutboundACOTHs(ctx, dbTX, req.AffectedTxns)
		if err != nil {
			return err
		}
		if err := tm.validateOutboundPSV(ctx, req.PrivacyMode, recipients, resolved); err != nil {
			return err
		}

		plaintext, err := tm.enclave.DecryptRawPayload(ctx, &enclave.RawTransaction{
			CipherText:   raw.EncryptedPayload,
			EncryptedKey: raw.EncryptedKey,
			Nonce:        raw.Nonce,
			Sender:       raw.Sender,
		})
		if err != nil {
			return err
		}
		var encErr error
		encoded, encErr = tm.enclave.Encrypt(ctx, plaintext, raw.Sender, recipients, req.PrivacyMode, req.AffectedTxns, req.ExecHash)
		if encErr != nil {
			return encErr
		}
		hash := hashOf(encoded)
		if err := tm.txStore.Save(ctx, dbTX, hash, encoded); err != nil {
			return err
		}
		resp = &SendResponse{Key: hash}
		return nil
	})
	if err != nil {
		return nil, err
	}

	tm.publishAll(ctx, encoded, recipients)
	return resp, nil
}

// resolveOutboundACOTHs looks up every referenced affected-contract-
// transaction locally. A miss is always fatal on the outbound path -
// unlike storePayload, the sender is asserting these ancestors exist,
// and an outbound transaction cannot legitimately reference a
// transaction this node doesn't have.
func (tm *TransactionManager) resolveOutboundACOTHs(ctx context.Context, dbTX persistence.DBTX, refs []tmtypes.AffectedTransaction) (map[tmtypes.TxHash]*tmtypes.EncodedPayload, error) {
	resolved := make(map[tmtypes.TxHash]*tmtypes.EncodedPayload, len(refs))
	for _, ref := range refs {
		p, found, err := tm.txStore.RetrieveByHash(ctx, dbTX, ref.Hash)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, tmerrors.PrivacyViolation(ctx, i18n.NewError(ctx, msgs.MsgACOTHMissingOutbound, ref.Hash.String()).Error())
		}
		resolved[ref.Hash] = p
	}
	return resolved, nil
}

// validateOutboundPSV enforces the two outbound PSV checks: privacy
// mode must match across every affected transaction, and (PSV only)
// recipients must match exactly. Both are fatal on this path.
func (tm *TransactionManager) validateOutboundPSV(ctx context.Context, mode tmtypes.PrivacyMode, recipients []tmtypes.PublicKey, resolved map[tmtypes.TxHash]*tmtypes.EncodedPayload) error {
	if !psv.PrivacyModesMatch(mode, resolved) {
		return tmerrors.PrivacyViolation(ctx, "privacy mode of an affected contract transaction does not match")
	}
	if mode == tmtypes.PrivateStateValidation {
		if !psv.RecipientsEqual(recipients, resolved) {
			return tmerrors.PrivacyViolation(ctx, "recipients of an affected contract transaction do not match")
		}
	}
	return nil
}

// publishAll projects encoded down to each recipient's own view - so
// one recipient never learns who else received the transaction - and
// fans the projection out to every recipient. Per the error-handling
// design, a publish failure never aborts the enclosing operation: it is
// logged and the loop continues.
func (tm *TransactionManager) publishAll(ctx context.Context, encoded *tmtypes.EncodedPayload, recipients []tmtypes.PublicKey) {
	if tm.publisher == nil {
		return
	}
	for _, r := range recipients {
		projected, err := payload.ForRecipient(ctx, encoded, r)
		if err != nil {
			log.L(ctx).Warnf("publish to %s failed, continuing: %v", r, err)
			continue
		}
		if err := tm.publisher.Publish(ctx, projected, r); err != nil {
			log.L(ctx).Warnf("publish to %s failed, continuing: %v", r, err)
		}
	}
}

func hashOf(p *tmtypes.EncodedPayload) tmtypes.MessageHash {
	return hashfactory.Hash(p.CipherText)
}
