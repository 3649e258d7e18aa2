// Package hashfactory computes the content-addressed digest used as a
// transaction's identity throughout this module.
package hashfactory

import (
	"golang.org/x/crypto/sha3"

	"github.com/NicolasMassart/tessera/pkg/tmtypes"
)

// Hash derives a MessageHash from cipher-text. Hashing the same
// cipher-text on any node must yield the same hash - this is the
// cross-node content-addressing contract the rest of the system leans
// on, so this function must stay a pure function of its input bytes.
func Hash(cipherText []byte) tmtypes.MessageHash {
	digest := sha3.Sum512(cipherText)
	return tmtypes.MessageHash(digest)
}
