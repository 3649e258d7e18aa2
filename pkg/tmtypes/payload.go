package tmtypes

// AffectedTransaction is one entry of a payload's affected-contract-
// transaction graph: a reference to a prior transaction hash plus the
// security hash binding this payload to that reference.
type AffectedTransaction struct {
	Hash         TxHash
	SecurityHash []byte
}

// EncodedPayload is the canonical envelope for one private transaction:
// sender/cipher-text/per-recipient boxes plus the privacy-mode metadata
// that the PSV protocol polices.
type EncodedPayload struct {
	SenderKey       PublicKey
	CipherText      []byte
	CipherTextNonce []byte
	RecipientBoxes  [][]byte
	RecipientNonce  []byte
	RecipientKeys   []PublicKey
	PrivacyMode     PrivacyMode
	AffectedTxns    []AffectedTransaction
	ExecHash        []byte
}

// AffectedMap returns the payload's affected-contract-transaction graph
// as a hash-keyed map, the representation most of the validation logic
// works with; the slice form is only for canonical on-wire ordering.
func (p *EncodedPayload) AffectedMap() map[TxHash][]byte {
	m := make(map[TxHash][]byte, len(p.AffectedTxns))
	for _, a := range p.AffectedTxns {
		m[a.Hash] = a.SecurityHash
	}
	return m
}

// IndexOfRecipient reports the index of target in RecipientKeys, or -1
// if it is not present.
func (p *EncodedPayload) IndexOfRecipient(target PublicKey) int {
	for i, k := range p.RecipientKeys {
		if k == target {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy, so that projection and pruning never alias
// the caller's slices.
func (p *EncodedPayload) Clone() *EncodedPayload {
	c := &EncodedPayload{
		SenderKey:       p.SenderKey,
		CipherText:      append([]byte(nil), p.CipherText...),
		CipherTextNonce: append([]byte(nil), p.CipherTextNonce...),
		RecipientNonce:  append([]byte(nil), p.RecipientNonce...),
		PrivacyMode:     p.PrivacyMode,
		ExecHash:        append([]byte(nil), p.ExecHash...),
	}
	c.RecipientBoxes = make([][]byte, len(p.RecipientBoxes))
	for i, b := range p.RecipientBoxes {
		c.RecipientBoxes[i] = append([]byte(nil), b...)
	}
	c.RecipientKeys = append([]PublicKey(nil), p.RecipientKeys...)
	c.AffectedTxns = make([]AffectedTransaction, len(p.AffectedTxns))
	for i, a := range p.AffectedTxns {
		c.AffectedTxns[i] = AffectedTransaction{Hash: a.Hash, SecurityHash: append([]byte(nil), a.SecurityHash...)}
	}
	return c
}
