// Package enclave defines the Enclave interface - the cryptographic
// oracle that owns private key material - and a reference
// implementation built on golang.org/x/crypto/nacl/box, the same
// Curve25519-XSalsa20-Poly1305 primitive family this stack's payload
// shape (cipherTextNonce/recipientBoxes/recipientNonce) was modeled on.
package enclave

import (
	"context"

	"github.com/NicolasMassart/tessera/pkg/tmtypes"
)

// RawTransaction is the sender-only encrypted form produced by
// EncryptRawPayload and consumed later by SendSignedTransaction.
type RawTransaction struct {
	CipherText   []byte
	EncryptedKey []byte
	Nonce        []byte
	Sender       tmtypes.PublicKey
}

// Enclave is the cryptographic oracle every TransactionManager operation
// delegates encryption, decryption, and security-hash verification to.
// It is the one component in this design that is allowed to see
// plaintext and private key material.
type Enclave interface {
	// Encrypt builds a new envelope encrypting raw for the given
	// recipients, binding the affected-contract-transaction graph and
	// exec hash into the envelope.
	Encrypt(ctx context.Context, raw []byte, sender tmtypes.PublicKey, recipients []tmtypes.PublicKey, mode tmtypes.PrivacyMode, acoths []tmtypes.AffectedTransaction, execHash []byte) (*tmtypes.EncodedPayload, error)

	// Decrypt recovers the plaintext a payload carries for recipient,
	// which must be a locally-held key. Every failure mode - wrong key,
	// corrupt box, tampered cipher-text - is surfaced as a tmerrors.Error of
	// kind KindDecryptionFailed (tmerrors.IsDecryptionFailed) so callers
	// performing trial decryption can treat them uniformly.
	Decrypt(ctx context.Context, payload *tmtypes.EncodedPayload, recipient tmtypes.PublicKey) ([]byte, error)

	// EncryptRawPayload produces the sender-only encrypted form stored
	// by Store and later consumed by SendSignedTransaction.
	EncryptRawPayload(ctx context.Context, raw []byte, sender tmtypes.PublicKey) (*RawTransaction, error)

	// DecryptRawPayload recovers the plaintext from a sender-only raw
	// transaction previously produced by EncryptRawPayload.
	DecryptRawPayload(ctx context.Context, rt *RawTransaction) ([]byte, error)

	// FindInvalidSecurityHashes returns the subset of acoths whose
	// security hash does not match what this enclave computes for the
	// combination of that affected transaction and the referencing
	// payload's exec hash.
	FindInvalidSecurityHashes(ctx context.Context, execHash []byte, acoths []tmtypes.AffectedTransaction, resolved map[tmtypes.TxHash]*tmtypes.EncodedPayload) (map[tmtypes.TxHash]struct{}, error)

	// SecurityHashFor computes the security hash that binds an
	// affected-contract-transaction's cipher-text to a referencing
	// payload's exec hash.
	SecurityHashFor(acothCipherText, execHash []byte) []byte

	PublicKeys() []tmtypes.PublicKey
	ForwardingKeys() []tmtypes.PublicKey
	DefaultPublicKey() tmtypes.PublicKey
}
