package sqlite

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/herohuhu666/wanwu/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// StateRepository keeps the profile store's JSON documents in SQLite.
type StateRepository struct {
	db *gorm.DB
}

func Open(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func NewStateRepository(db *gorm.DB) *StateRepository {
	return &StateRepository{db: db}
}

func (r *StateRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var m StateEntryModel
	err := r.db.WithContext(ctx).Where("state_key = ?", key).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return []byte(m.Value), nil
}

func (r *StateRepository) Put(ctx context.Context, key string, value []byte) error {
	m := StateEntryModel{Key: key, Value: datatypes.JSON(value)}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "state_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (r *StateRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Where("state_key IN ?", keys).Delete(&StateEntryModel{}).Error; err != nil {
		return fmt.Errorf("delete state: %w", err)
	}
	return nil
}

// List returns every entry whose key starts with prefix. substr is used
// instead of LIKE because namespaces contain underscores.
func (r *StateRepository) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	rows := make([]StateEntryModel, 0)
	q := r.db.WithContext(ctx).Model(&StateEntryModel{})
	if prefix != "" {
		q = q.Where("substr(state_key, 1, ?) = ?", utf8.RuneCountInString(prefix), prefix)
	}
	if err := q.Order("state_key").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list state: %w", err)
	}
	out := make(map[string][]byte, len(rows))
	for _, m := range rows {
		out[m.Key] = []byte(m.Value)
	}
	return out, nil
}
