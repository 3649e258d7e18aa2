// Package tmerrors defines the typed error wrappers callers can match
// on with errors.As, built on top of the message-catalog entries in
// internal/msgs the same way the rest of this stack builds errors with
// i18n.NewError - but tagged with a concrete Go type per kind because
// the transaction manager's callers need to branch on kind, not just
// log a code.
package tmerrors

import (
	"context"

	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/NicolasMassart/tessera/internal/msgs"
)

type kind int

const (
	KindMalformedPayload kind = iota
	KindRecipientNotFound
	KindPrivacyViolation
	KindTransactionNotFound
	KindNoRecipientKeyFound
	KindKeyNotFound
	KindHashCollision
	KindDecryptionFailed
)

// Error wraps an i18n-built error with a kind tag for errors.As
// matching by callers that need to branch (e.g. the resend ALL loop
// distinguishing KeyNotFound from everything else).
type Error struct {
	Kind kind
	err  error
}

func (e *Error) Error() string { return e.err.Error() }
func (e *Error) Unwrap() error { return e.err }

func build(ctx context.Context, k kind, key i18n.ErrorMessageKey, inserts ...interface{}) *Error {
	return &Error{Kind: k, err: i18n.NewError(ctx, key, inserts...)}
}

func MalformedPayload(ctx context.Context, detail string) *Error {
	return build(ctx, KindMalformedPayload, msgs.MsgMalformedPayload, detail)
}

func RecipientNotFound(ctx context.Context, recipient string) *Error {
	return build(ctx, KindRecipientNotFound, msgs.MsgRecipientNotFound, recipient)
}

func PrivacyViolation(ctx context.Context, detail string) *Error {
	return build(ctx, KindPrivacyViolation, msgs.MsgPrivacyViolation, detail)
}

func TransactionNotFound(ctx context.Context, hash string) *Error {
	return build(ctx, KindTransactionNotFound, msgs.MsgTransactionNotFound, hash)
}

func NoRecipientKeyFound(ctx context.Context, hash string) *Error {
	return build(ctx, KindNoRecipientKeyFound, msgs.MsgNoRecipientKeyFound, hash)
}

func KeyNotFound(ctx context.Context, hash string) *Error {
	return build(ctx, KindKeyNotFound, msgs.MsgKeyNotFound, hash)
}

func HashCollision(ctx context.Context, hash string) *Error {
	return build(ctx, KindHashCollision, msgs.MsgHashCollision, hash)
}

func DecryptionFailed(ctx context.Context) *Error {
	return build(ctx, KindDecryptionFailed, msgs.MsgDecryptionFailed)
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, k kind) bool {
	var e *Error
	for err != nil {
		if te, ok := err.(*Error); ok {
			e = te
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == k
}

func IsKeyNotFound(err error) bool         { return IsKind(err, KindKeyNotFound) }
func IsTransactionNotFound(err error) bool { return IsKind(err, KindTransactionNotFound) }
func IsPrivacyViolation(err error) bool    { return IsKind(err, KindPrivacyViolation) }
func IsNoRecipientKeyFound(err error) bool { return IsKind(err, KindNoRecipientKeyFound) }
func IsMalformedPayload(err error) bool    { return IsKind(err, KindMalformedPayload) }
func IsDecryptionFailed(err error) bool    { return IsKind(err, KindDecryptionFailed) }
