package rawtxstore

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/NicolasMassart/tessera/pkg/persistence"
	"github.com/NicolasMassart/tessera/pkg/tmtypes"
)

// Store is the gorm-backed RawTxStore (C4).
type Store struct{}

func New() *Store { return &Store{} }

// RawTransaction is the in-process representation of a stored raw
// transaction.
type RawTransaction struct {
	EncryptedPayload []byte
	EncryptedKey     []byte
	Nonce            []byte
	Sender           tmtypes.PublicKey
}

func (s *Store) Save(ctx context.Context, dbTX persistence.DBTX, hash tmtypes.MessageHash, rt *RawTransaction) error {
	row := rawTransactionRow{
		Hash:             hash.String(),
		EncryptedPayload: rt.EncryptedPayload,
		EncryptedKey:     rt.EncryptedKey,
		Nonce:            rt.Nonce,
		Sender:           rt.Sender.Bytes(),
	}
	return dbTX.DB().WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func (s *Store) RetrieveByHash(ctx context.Context, dbTX persistence.DBTX, hash tmtypes.MessageHash) (*RawTransaction, bool, error) {
	var row rawTransactionRow
	err := dbTX.DB().WithContext(ctx).Where("hash = ?", hash.String()).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	sender, err := tmtypes.PublicKeyFromBytes(row.Sender)
	if err != nil {
		return nil, false, err
	}
	return &RawTransaction{
		EncryptedPayload: row.EncryptedPayload,
		EncryptedKey:     row.EncryptedKey,
		Nonce:            row.Nonce,
		Sender:           sender,
	}, true, nil
}

func (s *Store) Delete(ctx context.Context, dbTX persistence.DBTX, hash tmtypes.MessageHash) error {
	return dbTX.DB().WithContext(ctx).Where("hash = ?", hash.String()).Delete(&rawTransactionRow{}).Error
}
