// Package payload implements the canonical binary encoding of
// EncodedPayload envelopes and the per-recipient projection used before
// a payload is published to a peer.
package payload

import (
	"bytes"
	"context"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/NicolasMassart/tessera/pkg/tmerrors"
	"github.com/NicolasMassart/tessera/pkg/tmtypes"
)

// wireAffected and wirePayload are the RLP-friendly mirror of
// tmtypes.EncodedPayload: RLP has no map type, so the affected-
// contract-transaction graph is carried as a slice sorted ascending by
// hash bytes. That sort is what makes Encode canonical despite the
// logical field being an unordered map.
type wireAffected struct {
	Hash         tmtypes.TxHash
	SecurityHash []byte
}

type wirePayload struct {
	SenderKey       tmtypes.PublicKey
	CipherText      []byte
	CipherTextNonce []byte
	RecipientBoxes  [][]byte
	RecipientNonce  []byte
	RecipientKeys   []tmtypes.PublicKey
	PrivacyMode     uint8
	AffectedTxns    []wireAffected
	ExecHash        []byte
}

func toWire(p *tmtypes.EncodedPayload) wirePayload {
	affected := make([]wireAffected, len(p.AffectedTxns))
	copy(affected, toWireAffected(p.AffectedTxns))
	sort.Slice(affected, func(i, j int) bool {
		return bytes.Compare(affected[i].Hash[:], affected[j].Hash[:]) < 0
	})
	return wirePayload{
		SenderKey:       p.SenderKey,
		CipherText:      p.CipherText,
		CipherTextNonce: p.CipherTextNonce,
		RecipientBoxes:  p.RecipientBoxes,
		RecipientNonce:  p.RecipientNonce,
		RecipientKeys:   p.RecipientKeys,
		PrivacyMode:     uint8(p.PrivacyMode),
		AffectedTxns:    affected,
		ExecHash:        p.ExecHash,
	}
}

func toWireAffected(in []tmtypes.AffectedTransaction) []wireAffected {
	out := make([]wireAffected, len(in))
	for i, a := range in {
		out[i] = wireAffected{Hash: a.Hash, SecurityHash: a.SecurityHash}
	}
	return out
}

func fromWire(w wirePayload) *tmtypes.EncodedPayload {
	affected := make([]tmtypes.AffectedTransaction, len(w.AffectedTxns))
	for i, a := range w.AffectedTxns {
		affected[i] = tmtypes.AffectedTransaction{Hash: a.Hash, SecurityHash: a.SecurityHash}
	}
	return &tmtypes.EncodedPayload{
		SenderKey:       w.SenderKey,
		CipherText:      w.CipherText,
		CipherTextNonce: w.CipherTextNonce,
		RecipientBoxes:  w.RecipientBoxes,
		RecipientNonce:  w.RecipientNonce,
		RecipientKeys:   w.RecipientKeys,
		PrivacyMode:     tmtypes.PrivacyMode(w.PrivacyMode),
		AffectedTxns:    affected,
		ExecHash:        w.ExecHash,
	}
}

// Encode returns the canonical binary form of p. encode(decode(x)) == x
// for any well-formed x.
func Encode(p *tmtypes.EncodedPayload) ([]byte, error) {
	return rlp.EncodeToBytes(toWire(p))
}

// Decode parses b into an EncodedPayload, failing with a
// tmerrors.Error of kind MalformedPayload on any structural error.
func Decode(ctx context.Context, b []byte) (*tmtypes.EncodedPayload, error) {
	var w wirePayload
	if err := rlp.DecodeBytes(b, &w); err != nil {
		return nil, tmerrors.MalformedPayload(ctx, err.Error())
	}
	return fromWire(w), nil
}

// ForRecipient projects p down to the single recipient target: the
// returned envelope carries only that recipient's key and box, with
// every other field unchanged. This is the transform applied before a
// payload is published, so that one recipient never learns who else
// received the transaction.
func ForRecipient(ctx context.Context, p *tmtypes.EncodedPayload, target tmtypes.PublicKey) (*tmtypes.EncodedPayload, error) {
	idx := p.IndexOfRecipient(target)
	if idx < 0 {
		return nil, tmerrors.RecipientNotFound(ctx, target.String())
	}
	projected := p.Clone()
	projected.RecipientKeys = []tmtypes.PublicKey{target}
	projected.RecipientBoxes = [][]byte{append([]byte(nil), p.RecipientBoxes[idx]...)}
	return projected, nil
}
