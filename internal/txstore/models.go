// Package txstore is the gorm-backed store of finalized encrypted
// transactions (C5 in the design): the ST_TRANSACTION table plus its two
// child tables for the affected-contract-transaction graph and the
// per-recipient box list.
package txstore

// Transaction mirrors ST_TRANSACTION. ValidationStage and DataIssues
// carry over the original Tessera PSV staging columns; this core never
// populates them itself (PSV validation here is a synchronous decision
// made at send/store time, not a staged background pass), but the
// columns are kept so that a downstream staging process has somewhere
// to record progress without a schema migration.
type Transaction struct {
	Hash            string  `gorm:"column:hash;primaryKey"`
	CipherText      []byte  `gorm:"column:cipher_text;not null"`
	CipherTextNonce []byte  `gorm:"column:cipher_text_nonce;not null"`
	SenderKey       []byte  `gorm:"column:sender_key;not null"`
	RecipientNonce  []byte  `gorm:"column:recipient_nonce;not null"`
	PrivacyMode     int     `gorm:"column:privacy_mode"`
	ExecHash        []byte  `gorm:"column:exec_hash"`
	Timestamp       int64   `gorm:"column:timestamp;autoCreateTime:milli"`
	ValidationStage *int64  `gorm:"column:validation_stage"`
	DataIssues      *string `gorm:"column:data_issues"`

	AffectedTransactions []AffectedTransaction `gorm:"foreignKey:SourceHash;references:Hash"`
	Recipients           []Recipient           `gorm:"foreignKey:Hash;references:Hash"`
}

func (Transaction) TableName() string { return "st_transaction" }

// AffectedTransaction mirrors ST_AFFECTED_TRANSACTION.
type AffectedTransaction struct {
	AffectedHash string `gorm:"column:affected_hash;primaryKey"`
	SourceHash   string `gorm:"column:source_hash;primaryKey"`
	SecurityHash []byte `gorm:"column:security_hash"`
}

func (AffectedTransaction) TableName() string { return "st_affected_transaction" }

// Recipient mirrors ST_TRANSACTION_RECIPIENT.
type Recipient struct {
	Hash      string `gorm:"column:hash;primaryKey"`
	Recipient string `gorm:"column:recipient;primaryKey"`
	Box       []byte `gorm:"column:box"`
	Initiator bool   `gorm:"column:initiator"`
}

func (Recipient) TableName() string { return "st_transaction_recipient" }
