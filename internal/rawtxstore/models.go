// Package rawtxstore is the gorm-backed store of pre-encrypted,
// sender-only raw transactions (C4): rows created by Store and consumed
// only by SendSignedTransaction on the same node.
package rawtxstore

// rawTransactionRow mirrors ST_RAW_TRANSACTION.
type rawTransactionRow struct {
	Hash             string `gorm:"column:hash;primaryKey"`
	EncryptedPayload []byte `gorm:"column:encrypted_payload;not null"`
	EncryptedKey     []byte `gorm:"column:encrypted_key"`
	Nonce            []byte `gorm:"column:nonce"`
	Sender           []byte `gorm:"column:sender;not null"`
}

func (rawTransactionRow) TableName() string { return "st_raw_transaction" }
