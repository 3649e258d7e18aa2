package txnmgr

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicolasMassart/tessera/internal/rawtxstore"
	"github.com/NicolasMassart/tessera/internal/txstore"
	"github.com/NicolasMassart/tessera/pkg/enclave"
	"github.com/NicolasMassart/tessera/pkg/payload"
	"github.com/NicolasMassart/tessera/pkg/persistence"
	"github.com/NicolasMassart/tessera/pkg/resendmgr"
	"github.com/NicolasMassart/tessera/pkg/tmerrors"
	"github.com/NicolasMassart/tessera/pkg/tmtypes"
)

// capturingPublisher records every publish call instead of performing
// network I/O, so send/resend tests can assert on fan-out without a peer.
type capturingPublisher struct {
	mu        sync.Mutex
	published []capturedPublish
}

type capturedPublish struct {
	recipient tmtypes.PublicKey
	payload   *tmtypes.EncodedPayload
}

func (c *capturingPublisher) Publish(ctx context.Context, p *tmtypes.EncodedPayload, recipient tmtypes.PublicKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, capturedPublish{recipient: recipient, payload: p})
	return nil
}

func (c *capturingPublisher) forRecipient(r tmtypes.PublicKey) []capturedPublish {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []capturedPublish
	for _, p := range c.published {
		if p.recipient == r {
			out = append(out, p)
		}
	}
	return out
}

type harness struct {
	tm        *TransactionManager
	enc       enclave.Enclave
	sender    tmtypes.PublicKey
	recipient tmtypes.PublicKey
	publisher *capturingPublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	p, done, err := persistence.NewUnitTestPersistence(ctx, "../../db/migrations/sqlite")
	require.NoError(t, err)
	t.Cleanup(done)

	senderPub, senderPriv, err := enclave.GenerateKeyPair()
	require.NoError(t, err)
	recipientPub, recipientPriv, err := enclave.GenerateKeyPair()
	require.NoError(t, err)

	enc := enclave.New(map[tmtypes.PublicKey]*[32]byte{
		senderPub:    senderPriv,
		recipientPub: recipientPriv,
	}, senderPub, nil)

	pub := &capturingPublisher{}
	txStore := txstore.New()
	rawStore := rawtxstore.New()
	resendMgr := resendmgr.New(enc, txStore)

	tm := New(p, enc, pub, resendMgr, txStore, rawStore, nil)
	return &harness{tm: tm, enc: enc, sender: senderPub, recipient: recipientPub, publisher: pub}
}

func TestSendThenReceiveRoundTrip(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	sendResp, err := h.tm.Send(ctx, &SendRequest{
		Payload:     []byte("hello private world"),
		From:        &h.sender,
		To:          []tmtypes.PublicKey{h.recipient},
		PrivacyMode: tmtypes.StandardPrivate,
	})
	require.NoError(t, err)

	recvResp, err := h.tm.Receive(ctx, &ReceiveRequest{Key: sendResp.Key, To: &h.recipient})
	require.NoError(t, err)
	assert.Equal(t, []byte("hello private world"), recvResp.Payload)

	// published once to the recipient, projected to just that recipient's box.
	got := h.publisher.forRecipient(h.recipient)
	require.Len(t, got, 1)
	assert.Equal(t, []tmtypes.PublicKey{h.recipient}, got[0].payload.RecipientKeys)
}

func TestReceiveWithoutExplicitKeyTriesEveryLocalKey(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	sendResp, err := h.tm.Send(ctx, &SendRequest{
		Payload:     []byte("find me"),
		From:        &h.sender,
		To:          []tmtypes.PublicKey{h.recipient},
		PrivacyMode: tmtypes.StandardPrivate,
	})
	require.NoError(t, err)

	recvResp, err := h.tm.Receive(ctx, &ReceiveRequest{Key: sendResp.Key})
	require.NoError(t, err)
	assert.Equal(t, []byte("find me"), recvResp.Payload)
}

func TestReceiveUnknownHashIsTransactionNotFound(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	var missing tmtypes.MessageHash
	missing[0] = 0x99

	_, err := h.tm.Receive(ctx, &ReceiveRequest{Key: missing})
	require.Error(t, err)
	assert.True(t, tmerrors.IsTransactionNotFound(err))
}

func TestSendRejectsMissingOutboundACOTH(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	var phantom tmtypes.MessageHash
	phantom[0] = 0x42

	_, err := h.tm.Send(ctx, &SendRequest{
		Payload:      []byte("refers to nothing"),
		From:         &h.sender,
		To:           []tmtypes.PublicKey{h.recipient},
		PrivacyMode:  tmtypes.StandardPrivate,
		AffectedTxns: []tmtypes.AffectedTransaction{{Hash: phantom, SecurityHash: []byte("sh")}},
	})
	require.Error(t, err)
}

func TestSendUnderPSVRejectsRecipientMismatchAgainstAffectedTransaction(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	// first: a PSV ancestor whose recipients are {sender, recipient}.
	ancestor, err := h.tm.Send(ctx, &SendRequest{
		Payload:     []byte("ancestor"),
		From:        &h.sender,
		To:          []tmtypes.PublicKey{h.recipient},
		PrivacyMode: tmtypes.PrivateStateValidation,
	})
	require.NoError(t, err)

	execHash := []byte("exec-hash-for-binding")
	ancestorPayload, found, err := txstore.New().RetrieveByHash(ctx, persistence.NOTX(h.tm.persistence.DB()), ancestor.Key)
	require.NoError(t, err)
	require.True(t, found)
	securityHash := h.enc.SecurityHashFor(ancestorPayload.CipherText, execHash)

	// a third, unrelated party is not a recipient of the ancestor: under
	// PSV this must be rejected as a privacy violation.
	strangerPub, strangerPriv, err := enclave.GenerateKeyPair()
	require.NoError(t, err)
	_ = strangerPriv

	_, err = h.tm.Send(ctx, &SendRequest{
		Payload:     []byte("descendant"),
		From:        &h.sender,
		To:          []tmtypes.PublicKey{strangerPub},
		PrivacyMode: tmtypes.PrivateStateValidation,
		ExecHash:    execHash,
		AffectedTxns: []tmtypes.AffectedTransaction{
			{Hash: ancestor.Key, SecurityHash: securityHash},
		},
	})
	require.Error(t, err)
	assert.True(t, tmerrors.IsPrivacyViolation(err))
}

func TestStorePayloadRoundTripsThroughCodecAndTxStore(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	// build the envelope the way a peer would, addressed to h.recipient
	// only (StorePayload is the inbound counterpart of Send, so it never
	// sees an unencrypted payload - it sees the wire bytes a peer POSTed).
	encoded, err := h.enc.Encrypt(ctx, []byte("inbound plaintext"), h.sender, []tmtypes.PublicKey{h.sender, h.recipient}, tmtypes.StandardPrivate, nil, nil)
	require.NoError(t, err)
	wire, err := payload.Encode(encoded)
	require.NoError(t, err)

	hash, err := h.tm.StorePayload(ctx, wire)
	require.NoError(t, err)

	recvResp, err := h.tm.Receive(ctx, &ReceiveRequest{Key: hash, To: &h.recipient})
	require.NoError(t, err)
	assert.Equal(t, []byte("inbound plaintext"), recvResp.Payload)
}

func TestStorePayloadSilentlyDropsOnPrivacyModeMismatch(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	ancestor, err := h.tm.Send(ctx, &SendRequest{
		Payload:     []byte("ancestor"),
		From:        &h.sender,
		To:          []tmtypes.PublicKey{h.recipient},
		PrivacyMode: tmtypes.PartyProtection,
	})
	require.NoError(t, err)

	// an inbound payload claiming StandardPrivate but referencing a
	// PartyProtection ancestor: privacy modes disagree, must be silently
	// dropped (no error, but also never persisted).
	encoded, err := h.enc.Encrypt(ctx, []byte("mismatched"), h.sender, []tmtypes.PublicKey{h.sender, h.recipient}, tmtypes.StandardPrivate, []tmtypes.AffectedTransaction{
		{Hash: ancestor.Key, SecurityHash: []byte("irrelevant-once-dropped")},
	}, nil)
	require.NoError(t, err)
	wire, err := payload.Encode(encoded)
	require.NoError(t, err)

	hash, err := h.tm.StorePayload(ctx, wire)
	require.NoError(t, err, "a privacy-mode mismatch on the inbound path is a silent drop, not an error")

	_, found, err := txstore.New().RetrieveByHash(ctx, persistence.NOTX(h.tm.persistence.DB()), hash)
	require.NoError(t, err)
	assert.False(t, found, "the dropped payload must not have been persisted")
}

func TestStoreAndSendSignedTransaction(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	storeResp, err := h.tm.Store(ctx, &StoreRequest{Payload: []byte("pre-staged"), From: &h.sender})
	require.NoError(t, err)

	sendResp, err := h.tm.SendSignedTransaction(ctx, &SendSignedTransactionRequest{
		Hash:        storeResp.Key,
		To:          []tmtypes.PublicKey{h.recipient},
		PrivacyMode: tmtypes.StandardPrivate,
	})
	require.NoError(t, err)

	recvResp, err := h.tm.Receive(ctx, &ReceiveRequest{Key: sendResp.Key, To: &h.recipient})
	require.NoError(t, err)
	assert.Equal(t, []byte("pre-staged"), recvResp.Payload)
}

func TestSendSignedTransactionUnknownHashIsTransactionNotFound(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	var missing tmtypes.MessageHash
	missing[0] = 0x77

	_, err := h.tm.SendSignedTransaction(ctx, &SendSignedTransactionRequest{
		Hash:        missing,
		To:          []tmtypes.PublicKey{h.recipient},
		PrivacyMode: tmtypes.StandardPrivate,
	})
	require.Error(t, err)
	assert.True(t, tmerrors.IsTransactionNotFound(err))
}

func TestDeleteIsIdempotentAndNeverPublishes(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	sendResp, err := h.tm.Send(ctx, &SendRequest{
		Payload:     []byte("ephemeral"),
		From:        &h.sender,
		To:          []tmtypes.PublicKey{h.recipient},
		PrivacyMode: tmtypes.StandardPrivate,
	})
	require.NoError(t, err)

	publishedBefore := len(h.publisher.published)

	for i := 0; i < 2; i++ {
		err = h.tm.Delete(ctx, &DeleteRequest{Key: sendResp.Key})
		require.NoError(t, err)
	}
	assert.Equal(t, publishedBefore, len(h.publisher.published))

	_, err = h.tm.Receive(ctx, &ReceiveRequest{Key: sendResp.Key, To: &h.recipient})
	require.Error(t, err)
	assert.True(t, tmerrors.IsTransactionNotFound(err))
}

func TestResendAllBackfillsRecipient(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	sendResp, err := h.tm.Send(ctx, &SendRequest{
		Payload:     []byte("backfill me"),
		From:        &h.sender,
		To:          []tmtypes.PublicKey{h.recipient},
		PrivacyMode: tmtypes.StandardPrivate,
	})
	require.NoError(t, err)
	h.publisher.published = nil // reset, isolate resend's own publishes

	_, err = h.tm.Resend(ctx, &ResendRequest{Type: ResendAll, PublicKey: h.recipient})
	require.NoError(t, err)

	got := h.publisher.forRecipient(h.recipient)
	require.Len(t, got, 1)
	assert.Equal(t, sendResp.Key, hashOf(got[0].payload))
}

func TestResendAllPublishesOwnPayloadBackToItsOriginalSender(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	sendResp, err := h.tm.Send(ctx, &SendRequest{
		Payload:     []byte("backfill the sender too"),
		From:        &h.sender,
		To:          []tmtypes.PublicKey{h.recipient},
		PrivacyMode: tmtypes.StandardPrivate,
	})
	require.NoError(t, err)
	h.publisher.published = nil // reset, isolate resend's own publishes

	// h.sender is the SenderKey of the stored transaction (Send also lists
	// it as a recipient): this exercises resendOne's own-payload branch,
	// which publishes the un-pruned envelope back to h.sender rather than
	// a projection down to a single recipient's box.
	_, err = h.tm.Resend(ctx, &ResendRequest{Type: ResendAll, PublicKey: h.sender})
	require.NoError(t, err)

	got := h.publisher.forRecipient(h.sender)
	require.Len(t, got, 1, "the own-payload branch must actually publish, not silently drop")
	assert.Equal(t, sendResp.Key, hashOf(got[0].payload))
}

func TestResendIndividualReturnsRatherThanPublishing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	sendResp, err := h.tm.Send(ctx, &SendRequest{
		Payload:     []byte("single recovery"),
		From:        &h.sender,
		To:          []tmtypes.PublicKey{h.recipient},
		PrivacyMode: tmtypes.StandardPrivate,
	})
	require.NoError(t, err)
	h.publisher.published = nil

	resp, err := h.tm.Resend(ctx, &ResendRequest{Type: ResendIndividual, PublicKey: h.recipient, Key: &sendResp.Key})
	require.NoError(t, err)
	require.NotNil(t, resp.Payload)
	assert.Empty(t, h.publisher.published, "INDIVIDUAL resend must return the payload, not publish it")
}

func TestResendIndividualUnknownKeyIsTransactionNotFound(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	var missing tmtypes.MessageHash
	missing[0] = 0x55

	_, err := h.tm.Resend(ctx, &ResendRequest{Type: ResendIndividual, PublicKey: h.recipient, Key: &missing})
	require.Error(t, err)
	assert.True(t, tmerrors.IsTransactionNotFound(err))
}
