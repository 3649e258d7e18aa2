package txstore

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/NicolasMassart/tessera/pkg/payload"
	"github.com/NicolasMassart/tessera/pkg/persistence"
	"github.com/NicolasMassart/tessera/pkg/tmerrors"
	"github.com/NicolasMassart/tessera/pkg/tmtypes"
)

// Store is the gorm-backed TxStore (C5): CRUD plus a paged scan over
// finalized encrypted transactions.
type Store struct{}

func New() *Store { return &Store{} }

// Save persists a payload under its content-addressed hash. Re-saving
// an identical payload under the same hash is a no-op; re-saving a
// payload whose bytes differ from an existing row of that hash is a
// HashCollision, which the content-addressing contract in C1 should
// make impossible.
func (s *Store) Save(ctx context.Context, dbTX persistence.DBTX, hash tmtypes.MessageHash, p *tmtypes.EncodedPayload) error {
	row, err := toRow(hash, p)
	if err != nil {
		return err
	}

	var current Transaction
	err = dbTX.DB().WithContext(ctx).
		Preload("AffectedTransactions").
		Preload("Recipients").
		Where("hash = ?", hash.String()).First(&current).Error
	switch {
	case err == nil:
		existingPayload, decErr := fromRow(&current)
		if decErr != nil {
			return decErr
		}
		existingBytes, _ := payload.Encode(existingPayload)
		newBytes, _ := payload.Encode(p)
		if string(existingBytes) != string(newBytes) {
			return tmerrors.HashCollision(ctx, hash.String())
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return dbTX.DB().WithContext(ctx).Session(&gorm.Session{FullSaveAssociations: true}).Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error
	default:
		return err
	}
}

// RetrieveByHash returns the stored payload for hash, if any.
func (s *Store) RetrieveByHash(ctx context.Context, dbTX persistence.DBTX, hash tmtypes.MessageHash) (*tmtypes.EncodedPayload, bool, error) {
	var row Transaction
	err := dbTX.DB().WithContext(ctx).
		Preload("AffectedTransactions").
		Preload("Recipients").
		Where("hash = ?", hash.String()).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	p, err := fromRow(&row)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// Delete removes the stored payload for hash, if present. Idempotent.
func (s *Store) Delete(ctx context.Context, dbTX persistence.DBTX, hash tmtypes.MessageHash) error {
	h := hash.String()
	db := dbTX.DB().WithContext(ctx)
	if err := db.Where("source_hash = ?", h).Delete(&AffectedTransaction{}).Error; err != nil {
		return err
	}
	if err := db.Where("hash = ?", h).Delete(&Recipient{}).Error; err != nil {
		return err
	}
	return db.Where("hash = ?", h).Delete(&Transaction{}).Error
}

// Count returns the total number of stored transactions.
func (s *Store) Count(ctx context.Context, dbTX persistence.DBTX) (int64, error) {
	var n int64
	err := dbTX.DB().WithContext(ctx).Model(&Transaction{}).Count(&n).Error
	return n, err
}

// Item is one entry of a paged scan.
type Item struct {
	Hash    tmtypes.MessageHash
	Payload *tmtypes.EncodedPayload
}

// RetrievePage returns up to limit transactions starting at offset,
// ordered by hash for a stable (if not snapshot-isolated) scan order.
func (s *Store) RetrievePage(ctx context.Context, dbTX persistence.DBTX, offset, limit int) ([]Item, error) {
	var rows []Transaction
	err := dbTX.DB().WithContext(ctx).
		Preload("AffectedTransactions").
		Preload("Recipients").
		Order("hash").
		Offset(offset).Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(rows))
	for i := range rows {
		p, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		h, err := tmtypes.ParseMessageHash(rows[i].Hash)
		if err != nil {
			return nil, err
		}
		items = append(items, Item{Hash: h, Payload: p})
	}
	return items, nil
}

func toRow(hash tmtypes.MessageHash, p *tmtypes.EncodedPayload) (*Transaction, error) {
	row := &Transaction{
		Hash:            hash.String(),
		CipherText:      p.CipherText,
		CipherTextNonce: p.CipherTextNonce,
		SenderKey:       p.SenderKey.Bytes(),
		RecipientNonce:  p.RecipientNonce,
		PrivacyMode:     int(p.PrivacyMode),
		ExecHash:        p.ExecHash,
	}
	for _, a := range p.AffectedTxns {
		row.AffectedTransactions = append(row.AffectedTransactions, AffectedTransaction{
			AffectedHash: a.Hash.String(),
			SourceHash:   row.Hash,
			SecurityHash: a.SecurityHash,
		})
	}
	for i, k := range p.RecipientKeys {
		var box []byte
		if i < len(p.RecipientBoxes) {
			box = p.RecipientBoxes[i]
		}
		row.Recipients = append(row.Recipients, Recipient{
			Hash:      row.Hash,
			Recipient: k.String(),
			Box:       box,
			Initiator: k == p.SenderKey,
		})
	}
	return row, nil
}

func fromRow(row *Transaction) (*tmtypes.EncodedPayload, error) {
	sender, err := tmtypes.PublicKeyFromBytes(row.SenderKey)
	if err != nil {
		return nil, err
	}
	p := &tmtypes.EncodedPayload{
		SenderKey:       sender,
		CipherText:      row.CipherText,
		CipherTextNonce: row.CipherTextNonce,
		RecipientNonce:  row.RecipientNonce,
		PrivacyMode:     tmtypes.PrivacyMode(row.PrivacyMode),
		ExecHash:        row.ExecHash,
	}
	for _, a := range row.AffectedTransactions {
		h, err := tmtypes.ParseMessageHash(a.AffectedHash)
		if err != nil {
			return nil, err
		}
		p.AffectedTxns = append(p.AffectedTxns, tmtypes.AffectedTransaction{Hash: h, SecurityHash: a.SecurityHash})
	}
	for _, r := range row.Recipients {
		k, err := tmtypes.ParsePublicKey(r.Recipient)
		if err != nil {
			return nil, err
		}
		p.RecipientKeys = append(p.RecipientKeys, k)
		p.RecipientBoxes = append(p.RecipientBoxes, r.Box)
	}
	return p, nil
}
