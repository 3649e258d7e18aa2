// Package tmtypes defines the wire and storage byte-types shared across
// the transaction manager: public keys and content-addressed hashes.
// They follow the hex-wrapper-type pattern used elsewhere in this stack,
// adapted to base64 encoding at the JSON boundary because that is what
// this wire protocol uses instead of 0x-hex.
package tmtypes

import (
	"database/sql/driver"
	"encoding/base64"
	"fmt"
)

// PublicKeyLen is the width of a Curve25519 public key.
const PublicKeyLen = 32

// PublicKey is an opaque Curve25519 public key, base64 on the wire.
type PublicKey [PublicKeyLen]byte

// ParsePublicKey decodes a base64 string into a PublicKey.
func ParsePublicKey(s string) (PublicKey, error) {
	var k PublicKey
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return k, fmt.Errorf("invalid base64 public key: %w", err)
	}
	if len(b) != PublicKeyLen {
		return k, fmt.Errorf("invalid public key length %d, expected %d", len(b), PublicKeyLen)
	}
	copy(k[:], b)
	return k, nil
}

// PublicKeyFromBytes copies b into a PublicKey, without any base64
// round-trip.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var k PublicKey
	if len(b) != PublicKeyLen {
		return k, fmt.Errorf("invalid public key length %d, expected %d", len(b), PublicKeyLen)
	}
	copy(k[:], b)
	return k, nil
}

// MustParsePublicKey is ParsePublicKey but panics on error; useful for
// literal test fixtures and static config defaults.
func MustParsePublicKey(s string) PublicKey {
	k, err := ParsePublicKey(s)
	if err != nil {
		panic(err)
	}
	return k
}

func (k PublicKey) String() string {
	return base64.StdEncoding.EncodeToString(k[:])
}

// Bytes returns a copy of the underlying bytes.
func (k PublicKey) Bytes() []byte {
	b := make([]byte, PublicKeyLen)
	copy(b, k[:])
	return b
}

func (k PublicKey) Equals(other PublicKey) bool {
	return k == other
}

func (k PublicKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func (k PublicKey) Value() (driver.Value, error) {
	return k.String(), nil
}

func (k *PublicKey) Scan(src interface{}) error {
	s, ok := src.(string)
	if !ok {
		if b, ok := src.([]byte); ok {
			s = string(b)
		} else {
			return fmt.Errorf("cannot scan %T into PublicKey", src)
		}
	}
	parsed, err := ParsePublicKey(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
