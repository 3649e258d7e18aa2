package txnmgr

import (
	"context"

	"github.com/NicolasMassart/tessera/internal/psv"
	"github.com/NicolasMassart/tessera/pkg/hashfactory"
	"github.com/NicolasMassart/tessera/pkg/log"
	"github.com/NicolasMassart/tessera/pkg/payload"
	"github.com/NicolasMassart/tessera/pkg/persistence"
	"github.com/NicolasMassart/tessera/pkg/tmerrors"
	"github.com/NicolasMassart/tessera/pkg/tmtypes"
)

// StorePayload handles an inbound envelope forwarded by another node.
// Unlike the outbound send path, a missing affected-contract-transaction
// here is non-fatal - it is logged and omitted, supporting eventual
// backfill - and most privacy-mode mismatches result in a silent drop
// rather than a surfaced error. StorePayload is deliberately not wrapped
// in a database transaction: its one write self-commits.
func (tm *TransactionManager) StorePayload(ctx context.Context, raw []byte) (tmtypes.MessageHash, error) {
	p, err := payload.Decode(ctx, raw)
	if err != nil {
		return tmtypes.MessageHash{}, err
	}
	hash := hashfactory.Hash(p.CipherText)

	dbTX := persistence.NOTX(tm.persistence.DB())

	resolved := tm.resolveInboundACOTHs(ctx, dbTX, p.AffectedTxns, hash)

	if !psv.PrivacyModesMatch(p.PrivacyMode, resolved) {
		log.L(ctx).Infof("dropping inbound payload %s: privacy mode mismatch with an affected contract transaction", hash)
		return hash, nil
	}

	if p.PrivacyMode == tmtypes.PrivateStateValidation {
		if !psv.SenderIsGenuine(p.SenderKey, len(p.AffectedTxns), resolved) {
			log.L(ctx).Infof("dropping inbound payload %s: sender is not genuine (recipient-discovery defense)", hash)
			return hash, nil
		}
		if !psv.RecipientsEqual(p.RecipientKeys, resolved) {
			return hash, tmerrors.PrivacyViolation(ctx, "recipients of an affected contract transaction do not match")
		}
	}

	invalid, err := tm.enclave.FindInvalidSecurityHashes(ctx, p.ExecHash, p.AffectedTxns, resolved)
	if err != nil {
		return hash, err
	}
	if len(invalid) > 0 {
		if p.PrivacyMode == tmtypes.PrivateStateValidation {
			return hash, tmerrors.PrivacyViolation(ctx, "invalid security hash on an affected contract transaction")
		}
		p.AffectedTxns = pruneInvalid(p.AffectedTxns, invalid)
	}

	if tm.isOwnMessage(p) {
		return hash, tm.resendManager.AcceptOwnMessage(ctx, dbTX, raw)
	}

	return hash, tm.txStore.Save(ctx, dbTX, hash, p)
}

// resolveInboundACOTHs looks up each referenced affected-contract-
// transaction, logging and omitting any that cannot be resolved rather
// than failing the whole payload.
func (tm *TransactionManager) resolveInboundACOTHs(ctx context.Context, dbTX persistence.DBTX, refs []tmtypes.AffectedTransaction, txHash tmtypes.MessageHash) map[tmtypes.TxHash]*tmtypes.EncodedPayload {
	resolved := make(map[tmtypes.TxHash]*tmtypes.EncodedPayload, len(refs))
	for _, ref := range refs {
		p, found, err := tm.txStore.RetrieveByHash(ctx, dbTX, ref.Hash)
		if err != nil {
			log.L(ctx).Warnf("error resolving affected contract transaction %s for inbound payload %s: %v", ref.Hash, txHash, err)
			continue
		}
		if !found {
			log.L(ctx).Debugf("affected contract transaction %s for inbound payload %s not found locally, omitting", ref.Hash, txHash)
			continue
		}
		resolved[ref.Hash] = p
	}
	return resolved
}

func pruneInvalid(refs []tmtypes.AffectedTransaction, invalid map[tmtypes.TxHash]struct{}) []tmtypes.AffectedTransaction {
	out := make([]tmtypes.AffectedTransaction, 0, len(refs))
	for _, r := range refs {
		if _, bad := invalid[r.Hash]; bad {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (tm *TransactionManager) isOwnMessage(p *tmtypes.EncodedPayload) bool {
	for _, k := range tm.enclave.PublicKeys() {
		if k == p.SenderKey {
			return true
		}
	}
	return false
}
