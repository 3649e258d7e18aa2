package tmtypes

import (
	"database/sql/driver"
	"encoding/base64"
	"fmt"
)

// HashLen is the width of a content-addressed digest (SHA3-512 output).
const HashLen = 64

// MessageHash identifies a stored EncryptedTransaction by the digest of
// its cipher-text. TxHash is the same concept used when a hash appears
// inside another payload's affected-contract-transaction graph; the two
// are convertible by copying bytes, never by re-hashing.
type MessageHash [HashLen]byte

// TxHash is MessageHash under another name for use inside payload
// graphs; see MessageHash.
type TxHash = MessageHash

func ParseMessageHash(s string) (MessageHash, error) {
	var h MessageHash
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid base64 hash: %w", err)
	}
	if len(b) != HashLen {
		return h, fmt.Errorf("invalid hash length %d, expected %d", len(b), HashLen)
	}
	copy(h[:], b)
	return h, nil
}

func MessageHashFromBytes(b []byte) (MessageHash, error) {
	var h MessageHash
	if len(b) != HashLen {
		return h, fmt.Errorf("invalid hash length %d, expected %d", len(b), HashLen)
	}
	copy(h[:], b)
	return h, nil
}

func (h MessageHash) String() string {
	return base64.StdEncoding.EncodeToString(h[:])
}

func (h MessageHash) Bytes() []byte {
	b := make([]byte, HashLen)
	copy(b, h[:])
	return b
}

func (h MessageHash) Equals(other MessageHash) bool {
	return h == other
}

func (h MessageHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *MessageHash) UnmarshalText(text []byte) error {
	parsed, err := ParseMessageHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

func (h MessageHash) Value() (driver.Value, error) {
	return h.String(), nil
}

func (h *MessageHash) Scan(src interface{}) error {
	s, ok := src.(string)
	if !ok {
		if b, ok := src.([]byte); ok {
			s = string(b)
		} else {
			return fmt.Errorf("cannot scan %T into MessageHash", src)
		}
	}
	parsed, err := ParseMessageHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
