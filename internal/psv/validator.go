// Package psv implements the pure validation functions of the Private
// State Validation protocol (C10): privacy-mode matching, recipient-set
// equality, and sender-genuineness. None of these functions perform I/O
// - every lookup their callers need has already been resolved into the
// maps passed in, which keeps the branching here faithfully testable in
// isolation from storage and the enclave.
package psv

import "github.com/NicolasMassart/tessera/pkg/tmtypes"

// PrivacyModesMatch checks that every resolved affected-contract-
// transaction shares the new payload's privacy mode. Whether a mismatch
// is fatal is a decision left entirely to the caller: the outbound send
// path treats it as fatal (PrivacyViolation), while the inbound
// storePayload path logs and drops the payload instead of raising.
//
// This mirrors the original asymmetry precisely: on outbound sends,
// there is no local transaction hash of "this" payload yet (it doesn't
// exist until persisted), so a mismatch can only mean a caller request
// error, and is raised immediately. On inbound paths, a mismatch most
// often means a peer is in a different privacy-mode world than we are,
// which is not this node's transaction to police - it is simply
// dropped.
func PrivacyModesMatch(mode tmtypes.PrivacyMode, resolved map[tmtypes.TxHash]*tmtypes.EncodedPayload) bool {
	for _, acoth := range resolved {
		if acoth.PrivacyMode != mode {
			return false
		}
	}
	return true
}

// RecipientsEqual checks that recipients is exactly the same set (order
// irrelevant, duplicates irrelevant) as the recipient set of every
// resolved affected-contract-transaction. Unlike PrivacyModesMatch,
// any mismatch here is always treated by the caller as fatal, whether
// this is an inbound or outbound payload - PSV's core guarantee is that
// every party to a transaction's ancestry is also a party to its
// descendants, and there is no "benign" way for that to not hold.
func RecipientsEqual(recipients []tmtypes.PublicKey, resolved map[tmtypes.TxHash]*tmtypes.EncodedPayload) bool {
	want := keySet(recipients)
	for _, acoth := range resolved {
		got := keySet(acoth.RecipientKeys)
		if !setsEqual(want, got) {
			return false
		}
	}
	return true
}

// SenderIsGenuine defends against a recipient-discovery probe: a
// payload claiming more affected-contract-transactions than could be
// resolved locally is treated as not genuine outright (an adversary
// listing hashes we may or may not have, to learn which we have by
// observing whether we silently drop the payload). Otherwise, the
// sender key must appear as a recipient of every resolved
// affected-contract-transaction.
func SenderIsGenuine(sender tmtypes.PublicKey, claimedCount int, resolved map[tmtypes.TxHash]*tmtypes.EncodedPayload) bool {
	if len(resolved) != claimedCount {
		return false
	}
	result := true
	for _, acoth := range resolved {
		found := false
		for _, k := range acoth.RecipientKeys {
			if k == sender {
				found = true
				break
			}
		}
		if !found {
			result = false
		}
	}
	return result
}

func keySet(keys []tmtypes.PublicKey) map[tmtypes.PublicKey]struct{} {
	m := make(map[tmtypes.PublicKey]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return m
}

func setsEqual(a, b map[tmtypes.PublicKey]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
