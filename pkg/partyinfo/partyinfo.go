// Package partyinfo defines the PartyInfo publish sink (C7) - the
// component responsible for getting one recipient's projection of a
// payload onto the wire to that recipient's node - and a reference
// implementation built on resty, the HTTP client already used
// elsewhere in this stack.
package partyinfo

import (
	"context"

	"github.com/NicolasMassart/tessera/pkg/tmtypes"
)

// Publisher is the fan-out sink TransactionManager calls once per
// recipient after persisting a transaction. It publishes p exactly as
// given - the caller is responsible for projecting the envelope down to
// what recipient is allowed to see before calling Publish.
type Publisher interface {
	Publish(ctx context.Context, p *tmtypes.EncodedPayload, recipient tmtypes.PublicKey) error
}
