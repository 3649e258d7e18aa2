package enclave

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicolasMassart/tessera/pkg/tmtypes"
)

func newTestEnclave(t *testing.T) (Enclave, tmtypes.PublicKey, tmtypes.PublicKey) {
	t.Helper()
	pubA, privA, err := GenerateKeyPair()
	require.NoError(t, err)
	pubB, privB, err := GenerateKeyPair()
	require.NoError(t, err)

	e := New(map[tmtypes.PublicKey]*[32]byte{
		pubA: privA,
		pubB: privB,
	}, pubA, nil)
	return e, pubA, pubB
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	ctx := context.Background()
	e, sender, recipient := newTestEnclave(t)

	payload, err := e.Encrypt(ctx, []byte("top secret state"), sender, []tmtypes.PublicKey{sender, recipient}, tmtypes.StandardPrivate, nil, nil)
	require.NoError(t, err)

	plainForRecipient, err := e.Decrypt(ctx, payload, recipient)
	require.NoError(t, err)
	assert.Equal(t, []byte("top secret state"), plainForRecipient)

	plainForSender, err := e.Decrypt(ctx, payload, sender)
	require.NoError(t, err)
	assert.Equal(t, []byte("top secret state"), plainForSender)
}

func TestDecryptWithUnrelatedKeyFails(t *testing.T) {
	ctx := context.Background()
	e, sender, recipient := newTestEnclave(t)

	payload, err := e.Encrypt(ctx, []byte("data"), sender, []tmtypes.PublicKey{recipient}, tmtypes.StandardPrivate, nil, nil)
	require.NoError(t, err)

	otherPub, otherPriv, err := GenerateKeyPair()
	require.NoError(t, err)
	other := New(map[tmtypes.PublicKey]*[32]byte{otherPub: otherPriv}, otherPub, nil)

	_, err = other.Decrypt(ctx, payload, otherPub)
	require.Error(t, err)
}

func TestEncryptRawPayloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	e, sender, _ := newTestEnclave(t)

	rt, err := e.EncryptRawPayload(ctx, []byte("raw bytes"), sender)
	require.NoError(t, err)

	raw, err := e.DecryptRawPayload(ctx, rt)
	require.NoError(t, err)
	assert.Equal(t, []byte("raw bytes"), raw)
}

func TestSecurityHashForIsDeterministicAndInputSensitive(t *testing.T) {
	e, _, _ := newTestEnclave(t)
	ne := e.(*naclEnclave)

	h1 := ne.SecurityHashFor([]byte("cipher"), []byte("exec"))
	h2 := ne.SecurityHashFor([]byte("cipher"), []byte("exec"))
	h3 := ne.SecurityHashFor([]byte("other"), []byte("exec"))
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}

func TestFindInvalidSecurityHashesFlagsTamperedEntries(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEnclave(t)
	ne := e.(*naclEnclave)

	execHash := []byte("exec-hash")
	acothCipherText := []byte("acoth-cipher")
	validHash := ne.SecurityHashFor(acothCipherText, execHash)

	validTxHash, _ := tmtypes.MessageHashFromBytes(append(make([]byte, 63), 0x01))
	invalidTxHash, _ := tmtypes.MessageHashFromBytes(append(make([]byte, 63), 0x02))

	resolved := map[tmtypes.TxHash]*tmtypes.EncodedPayload{
		validTxHash:   {CipherText: acothCipherText},
		invalidTxHash: {CipherText: acothCipherText},
	}
	acoths := []tmtypes.AffectedTransaction{
		{Hash: validTxHash, SecurityHash: validHash},
		{Hash: invalidTxHash, SecurityHash: []byte("bogus")},
	}

	invalid, err := e.FindInvalidSecurityHashes(ctx, execHash, acoths, resolved)
	require.NoError(t, err)
	assert.Len(t, invalid, 1)
	_, flagged := invalid[invalidTxHash]
	assert.True(t, flagged)
}

func TestDefaultPublicKeyFallsBackWhenConfiguredKeyNotInKeyring(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)
	var unrelated tmtypes.PublicKey
	unrelated[0] = 0xab

	e := New(map[tmtypes.PublicKey]*[32]byte{pub: priv}, unrelated, nil)
	assert.Equal(t, pub, e.DefaultPublicKey())
}
