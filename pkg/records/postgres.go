package records

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arc20-me/realm-stack/pkg/logging"
)

type realmRow struct {
	ID           uint   `gorm:"primaryKey"`
	RealmName    string `gorm:"uniqueIndex;not null"`
	RealmID      string
	RealmNumber  *int64
	RealmMinter  string
	RealmOwner   string
	RealmAvatar  string
	RealmBanner  string
	RealmMeta    string `gorm:"type:text"`
	RealmProfile string `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (realmRow) TableName() string {
	return "realms"
}

func toRow(rec *Record) realmRow {
	return realmRow{
		RealmName:    rec.RealmName,
		RealmID:      rec.RealmID,
		RealmNumber:  rec.RealmNumber,
		RealmMinter:  rec.MinterAddress,
		RealmOwner:   rec.OwnerAddress,
		RealmAvatar:  rec.AvatarURL,
		RealmBanner:  rec.BannerURL,
		RealmMeta:    string(rec.Meta),
		RealmProfile: string(rec.Profile),
	}
}

func (r realmRow) record() *Record {
	return &Record{
		RealmName:     r.RealmName,
		RealmID:       r.RealmID,
		RealmNumber:   r.RealmNumber,
		MinterAddress: r.RealmMinter,
		OwnerAddress:  r.RealmOwner,
		AvatarURL:     r.RealmAvatar,
		BannerURL:     r.RealmBanner,
		Meta:          json.RawMessage(r.RealmMeta),
		Profile:       json.RawMessage(r.RealmProfile),
	}
}

// updateColumns are the fields an explicit update rewrites.
func (r realmRow) updateColumns() map[string]any {
	return map[string]any{
		"realm_owner":   r.RealmOwner,
		"realm_avatar":  r.RealmAvatar,
		"realm_banner":  r.RealmBanner,
		"realm_meta":    r.RealmMeta,
		"realm_profile": r.RealmProfile,
	}
}

// PostgresRepository stores records in a postgres "realms" table.
type PostgresRepository struct {
	db *gorm.DB
}

// OpenPostgres connects to dsn and migrates the realms table.
func OpenPostgres(dsn string, logger *slog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logging.NewGormLogger(logger),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&realmRow{}); err != nil {
		return nil, err
	}
	return db, nil
}

func NewPostgresRepository(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, realm string) (*Record, error) {
	var row realmRow
	err := r.db.WithContext(ctx).Where("realm_name = ?", realm).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.record(), nil
}

func (r *PostgresRepository) Exists(ctx context.Context, realm string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&realmRow{}).Where("realm_name = ?", realm).Limit(1).Count(&count).Error
	return count > 0, err
}

func (r *PostgresRepository) Create(ctx context.Context, rec *Record) (bool, error) {
	row := toRow(rec)
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "realm_name"}},
		DoNothing: true,
	}).Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresRepository) Update(ctx context.Context, rec *Record) error {
	row := toRow(rec)
	res := r.db.WithContext(ctx).Model(&realmRow{}).
		Where("realm_name = ?", rec.RealmName).
		Updates(row.updateColumns())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the underlying connection pool.
func (r *PostgresRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
