package enclave

import (
	"context"
	"crypto/rand"

	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/NicolasMassart/tessera/pkg/hashfactory"
	"github.com/NicolasMassart/tessera/pkg/tmerrors"
	"github.com/NicolasMassart/tessera/pkg/tmtypes"
)

const (
	nonceLen     = 24
	masterKeyLen = 32
)

// naclEnclave is the in-memory reference Enclave: a keyring of
// Curve25519 key pairs, a configured default key, and a configured list
// of forwarding keys automatically added as recipients of every
// outbound payload.
type naclEnclave struct {
	keyring        map[tmtypes.PublicKey]*[32]byte
	defaultKey     tmtypes.PublicKey
	forwardingKeys []tmtypes.PublicKey
}

// New builds a reference Enclave from a set of Curve25519 private keys.
// If defaultKey is not one of keys, an arbitrary key from keys becomes
// the default key instead.
func New(keys map[tmtypes.PublicKey]*[32]byte, defaultKey tmtypes.PublicKey, forwardingKeys []tmtypes.PublicKey) Enclave {
	e := &naclEnclave{keyring: keys, defaultKey: defaultKey, forwardingKeys: forwardingKeys}
	if _, ok := keys[defaultKey]; !ok {
		for k := range keys {
			e.defaultKey = k
			break
		}
	}
	return e
}

// GenerateKeyPair is a small helper for tests and bootstrap code that
// need a fresh Curve25519 key pair.
func GenerateKeyPair() (tmtypes.PublicKey, *[32]byte, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return tmtypes.PublicKey{}, nil, err
	}
	return tmtypes.PublicKey(*pub), priv, nil
}

func (e *naclEnclave) Encrypt(ctx context.Context, raw []byte, sender tmtypes.PublicKey, recipients []tmtypes.PublicKey, mode tmtypes.PrivacyMode, acoths []tmtypes.AffectedTransaction, execHash []byte) (*tmtypes.EncodedPayload, error) {
	senderPriv, ok := e.keyring[sender]
	if !ok {
		return nil, tmerrors.RecipientNotFound(ctx, sender.String())
	}

	var masterKey [masterKeyLen]byte
	if _, err := rand.Read(masterKey[:]); err != nil {
		return nil, err
	}
	var cipherTextNonce [nonceLen]byte
	if _, err := rand.Read(cipherTextNonce[:]); err != nil {
		return nil, err
	}
	cipherText := secretbox.Seal(nil, raw, &cipherTextNonce, &masterKey)

	var recipientNonce [nonceLen]byte
	if _, err := rand.Read(recipientNonce[:]); err != nil {
		return nil, err
	}
	boxes := make([][]byte, len(recipients))
	for i, r := range recipients {
		rPub := [32]byte(r)
		boxes[i] = box.Seal(nil, masterKey[:], &recipientNonce, &rPub, senderPriv)
	}

	return &tmtypes.EncodedPayload{
		SenderKey:       sender,
		CipherText:      cipherText,
		CipherTextNonce: cipherTextNonce[:],
		RecipientBoxes:  boxes,
		RecipientNonce:  recipientNonce[:],
		RecipientKeys:   append([]tmtypes.PublicKey(nil), recipients...),
		PrivacyMode:     mode,
		AffectedTxns:    append([]tmtypes.AffectedTransaction(nil), acoths...),
		ExecHash:        append([]byte(nil), execHash...),
	}, nil
}

func (e *naclEnclave) Decrypt(ctx context.Context, payload *tmtypes.EncodedPayload, recipient tmtypes.PublicKey) ([]byte, error) {
	recipientPriv, ok := e.keyring[recipient]
	if !ok {
		return nil, tmerrors.RecipientNotFound(ctx, recipient.String())
	}
	idx := payload.IndexOfRecipient(recipient)
	if idx < 0 || idx >= len(payload.RecipientBoxes) {
		return nil, newDecryptionFailed(ctx)
	}
	if len(payload.RecipientNonce) != nonceLen || len(payload.CipherTextNonce) != nonceLen {
		return nil, newDecryptionFailed(ctx)
	}

	var recipientNonce, cipherTextNonce [nonceLen]byte
	copy(recipientNonce[:], payload.RecipientNonce)
	copy(cipherTextNonce[:], payload.CipherTextNonce)
	senderPub := [32]byte(payload.SenderKey)

	masterKey, ok := box.Open(nil, payload.RecipientBoxes[idx], &recipientNonce, &senderPub, recipientPriv)
	if !ok || len(masterKey) != masterKeyLen {
		return nil, newDecryptionFailed(ctx)
	}
	var mk [masterKeyLen]byte
	copy(mk[:], masterKey)

	raw, ok := secretbox.Open(nil, payload.CipherText, &cipherTextNonce, &mk)
	if !ok {
		return nil, newDecryptionFailed(ctx)
	}
	return raw, nil
}

func (e *naclEnclave) EncryptRawPayload(ctx context.Context, raw []byte, sender tmtypes.PublicKey) (*RawTransaction, error) {
	if _, ok := e.keyring[sender]; !ok {
		return nil, tmerrors.RecipientNotFound(ctx, sender.String())
	}
	var masterKey [masterKeyLen]byte
	if _, err := rand.Read(masterKey[:]); err != nil {
		return nil, err
	}
	var nonce [nonceLen]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}
	cipherText := secretbox.Seal(nil, raw, &nonce, &masterKey)
	return &RawTransaction{
		CipherText:   cipherText,
		EncryptedKey: masterKey[:],
		Nonce:        nonce[:],
		Sender:       sender,
	}, nil
}

func (e *naclEnclave) DecryptRawPayload(ctx context.Context, rt *RawTransaction) ([]byte, error) {
	if len(rt.EncryptedKey) != masterKeyLen || len(rt.Nonce) != nonceLen {
		return nil, newDecryptionFailed(ctx)
	}
	var mk [masterKeyLen]byte
	copy(mk[:], rt.EncryptedKey)
	var nonce [nonceLen]byte
	copy(nonce[:], rt.Nonce)
	raw, ok := secretbox.Open(nil, rt.CipherText, &nonce, &mk)
	if !ok {
		return nil, newDecryptionFailed(ctx)
	}
	return raw, nil
}

// SecurityHashFor binds an affected-contract-transaction's cipher-text
// to the referencing payload's exec hash, giving a cheap deterministic
// way to detect tampering between the two without an external proving
// system.
func (e *naclEnclave) SecurityHashFor(acothCipherText, execHash []byte) []byte {
	h := hashfactory.Hash(append(append([]byte(nil), acothCipherText...), execHash...))
	return h[:]
}

func (e *naclEnclave) FindInvalidSecurityHashes(ctx context.Context, execHash []byte, acoths []tmtypes.AffectedTransaction, resolved map[tmtypes.TxHash]*tmtypes.EncodedPayload) (map[tmtypes.TxHash]struct{}, error) {
	invalid := make(map[tmtypes.TxHash]struct{})
	for _, a := range acoths {
		local, ok := resolved[a.Hash]
		if !ok {
			continue
		}
		want := e.SecurityHashFor(local.CipherText, execHash)
		if string(want) != string(a.SecurityHash) {
			invalid[a.Hash] = struct{}{}
		}
	}
	return invalid, nil
}

func (e *naclEnclave) PublicKeys() []tmtypes.PublicKey {
	keys := make([]tmtypes.PublicKey, 0, len(e.keyring))
	for k := range e.keyring {
		keys = append(keys, k)
	}
	return keys
}

func (e *naclEnclave) ForwardingKeys() []tmtypes.PublicKey { return e.forwardingKeys }

func (e *naclEnclave) DefaultPublicKey() tmtypes.PublicKey { return e.defaultKey }

func newDecryptionFailed(ctx context.Context) error {
	return tmerrors.DecryptionFailed(ctx)
}
