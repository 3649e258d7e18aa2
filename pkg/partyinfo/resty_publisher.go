package partyinfo

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/NicolasMassart/tessera/internal/msgs"
	"github.com/NicolasMassart/tessera/pkg/confutil"
	"github.com/NicolasMassart/tessera/pkg/log"
	"github.com/NicolasMassart/tessera/pkg/payload"
	"github.com/NicolasMassart/tessera/pkg/tmconf"
	"github.com/NicolasMassart/tessera/pkg/tmtypes"
)

// RestyPublisher sends exactly the envelope it is given by POSTing its
// RLP-encoded bytes to recipient's configured peer URL. It does not
// project the envelope itself - the caller decides what recipient is
// allowed to see, the same way the transaction manager's own fan-out
// does before calling Publish. A publish failure is returned to the
// caller, who (per the fan-out contract in the transaction manager)
// logs and swallows it rather than aborting the enclosing operation.
type RestyPublisher struct {
	client *resty.Client
	peers  map[tmtypes.PublicKey]string
}

// NewRestyPublisher builds a publisher from a static peer registry.
func NewRestyPublisher(conf *tmconf.PartyInfoConfig) (*RestyPublisher, error) {
	client := resty.New().SetTimeout(confutil.DurationMin(conf.RequestTimeout, 0, "10s"))
	peers := make(map[tmtypes.PublicKey]string, len(conf.Peers))
	for keyB64, url := range conf.Peers {
		k, err := tmtypes.ParsePublicKey(keyB64)
		if err != nil {
			return nil, fmt.Errorf("invalid peer key %q: %w", keyB64, err)
		}
		peers[k] = url
	}
	return &RestyPublisher{client: client, peers: peers}, nil
}

func (p *RestyPublisher) Publish(ctx context.Context, envelope *tmtypes.EncodedPayload, recipient tmtypes.PublicKey) error {
	peerURL, ok := p.peers[recipient]
	if !ok {
		return i18n.NewError(ctx, msgs.MsgPublishFailed, recipient.String(), "no peer URL configured")
	}

	encoded, err := payload.Encode(envelope)
	if err != nil {
		return err
	}

	// a fresh correlation ID per push lets the receiving node's logs be
	// grepped against this node's "publish to" log line for the same
	// delivery attempt.
	resp, err := p.client.R().SetContext(ctx).
		SetHeader("X-Push-Id", uuid.NewString()).
		SetBody(encoded).
		Post(peerURL + "/push")
	if err != nil {
		log.L(ctx).Warnf("publish to %s failed: %v", recipient, err)
		return i18n.NewError(ctx, msgs.MsgPublishFailed, recipient.String(), err.Error())
	}
	if resp.IsError() {
		return i18n.NewError(ctx, msgs.MsgPublishFailed, recipient.String(), resp.Status())
	}
	return nil
}
