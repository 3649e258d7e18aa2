package tmconf

import "github.com/NicolasMassart/tessera/pkg/confutil"

// TxnManagerConfig carries the options owned by the transaction manager
// core itself, as opposed to the ambient DB/logging/HTTP config above.
type TxnManagerConfig struct {
	ResendFetchSize *int    `json:"resendFetchSize"`
	PublishTimeout  *string `json:"publishTimeout"`
}

// TxnManagerDefaults holds a modest page size for bulk resend, which
// txnmgr.New also falls back to when ResendFetchSize is unset or below 1.
// PublishTimeout is not read by the transaction manager; the per-request
// timeout of the reference publisher comes from
// PartyInfoConfig.RequestTimeout.
var TxnManagerDefaults = &TxnManagerConfig{
	ResendFetchSize: confutil.P(100),
	PublishTimeout:  confutil.P("5s"),
}

// EnclaveConfig configures the reference NaCl-box Enclave.
type EnclaveConfig struct {
	KeyringFile    *string  `json:"keyringFile"`
	DefaultKey     *string  `json:"defaultKey"`
	ForwardingKeys []string `json:"forwardingKeys"`
}

// PartyInfoConfig configures the reference resty-based PartyInfo
// publisher: a static map of recipient public key (base64) to peer base
// URL.
type PartyInfoConfig struct {
	Peers          map[string]string `json:"peers"`
	RequestTimeout *string           `json:"requestTimeout"`
}

// PartyInfoDefaults gives the resty client a sane timeout even when no
// peers are configured yet.
var PartyInfoDefaults = &PartyInfoConfig{
	RequestTimeout: confutil.P("10s"),
}
