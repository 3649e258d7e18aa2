// Package msgs is the message catalog for every error this module
// surfaces across a package boundary, following the i18n/prefix-
// registration pattern used throughout this stack so every error has a
// stable code instead of an ad-hoc string.
package msgs

import (
	"sync"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"golang.org/x/text/language"
)

const tessCorePrefix = "TM01"

var registerOnce sync.Once

func ffe(key, translation string, statusHint ...int) i18n.ErrorMessageKey {
	registerOnce.Do(func() {
		i18n.RegisterPrefix(tessCorePrefix, "Tessera Transaction Manager")
	})
	if key[:len(tessCorePrefix)] != tessCorePrefix {
		panic("message key must start with " + tessCorePrefix)
	}
	return i18n.FFE(language.AmericanEnglish, key, translation, statusHint...)
}

var (
	// Codec
	MsgMalformedPayload  = ffe("TM010001", "Malformed payload: %s")
	MsgRecipientNotFound = ffe("TM010002", "Recipient %s is not present in payload")

	// PSV / privacy
	MsgPrivacyViolation     = ffe("TM010010", "Privacy violation: %s")
	MsgACOTHMissingOutbound = ffe("TM010011", "Affected contract transaction %s could not be resolved locally")
	MsgPrivacyModeMismatch  = ffe("TM010012", "Privacy mode of affected transaction %s does not match")
	MsgRecipientsMismatch   = ffe("TM010013", "Recipients of affected transaction %s do not match")
	MsgInvalidSecurityHash  = ffe("TM010014", "Invalid security hash on affected transaction %s")
	MsgSenderNotGenuine     = ffe("TM010015", "Sender key is not present on all affected transactions")

	// Lookup
	MsgTransactionNotFound = ffe("TM010020", "Transaction %s was not found")
	MsgNoRecipientKeyFound = ffe("TM010021", "No locally-held key could decrypt transaction %s")
	MsgKeyNotFound         = ffe("TM010022", "No locally-held key could be resolved as the recipient of transaction %s")

	// Enclave
	MsgDecryptionFailed = ffe("TM010030", "Decryption failed")
	MsgEncryptionFailed = ffe("TM010031", "Encryption failed: %s")
	MsgKeyNotInKeyring  = ffe("TM010032", "Public key %s is not held by this enclave")

	// Publish
	MsgPublishFailed = ffe("TM010040", "Publish to recipient %s failed: %s")

	// Persistence
	MsgHashCollision        = ffe("TM010050", "Hash collision on %s: stored payload differs from content-addressed hash")
	MsgDBError              = ffe("TM010051", "Database error: %s")
	MsgMigrationError       = ffe("TM010052", "Migration error: %s")
	MsgInvalidDBType        = ffe("TM010053", "Invalid database type: %s")
	MsgMissingMigrationsDir = ffe("TM010054", "Migrations directory must be set when autoMigrate is enabled")
)
