package tmtypes

import "fmt"

// PrivacyMode tags the privacy guarantees a transaction was created
// under, grounded on the tagged-persisted-enum pattern used elsewhere in
// this stack but kept as a plain int here since only this module ever
// persists it.
type PrivacyMode int

const (
	StandardPrivate PrivacyMode = iota
	PartyProtection
	PrivateStateValidation
)

func (m PrivacyMode) String() string {
	switch m {
	case StandardPrivate:
		return "StandardPrivate"
	case PartyProtection:
		return "PartyProtection"
	case PrivateStateValidation:
		return "PrivateStateValidation"
	default:
		return fmt.Sprintf("PrivacyMode(%d)", int(m))
	}
}

func (m PrivacyMode) Valid() bool {
	return m >= StandardPrivate && m <= PrivateStateValidation
}
