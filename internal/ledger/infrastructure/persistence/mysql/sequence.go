package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wyfcoding/fractionalfunding/internal/ledger/domain"
	"github.com/wyfcoding/fractionalfunding/pkg/db"
)

// spvCodeSequence is one per-year counter row behind the human-readable
// SPV codes.
type spvCodeSequence struct {
	gorm.Model
	Year  int   `gorm:"column:year;uniqueIndex;not null"`
	Value int64 `gorm:"column:value;not null;default:0"`
}

func (spvCodeSequence) TableName() string { return "spv_code_sequences" }

// MigrateSequenceTable creates the counter table; dev-only auto migration.
func MigrateSequenceTable(gormDB *gorm.DB) error {
	return gormDB.AutoMigrate(&spvCodeSequence{})
}

type codeSequence struct {
	db *gorm.DB
}

// NewCodeSequence creates the DB-backed SPV code allocator.
func NewCodeSequence(gormDB *gorm.DB) domain.CodeSequence {
	return &codeSequence{db: gormDB}
}

// Next increments and returns the counter for year under a row lock, so
// concurrent SPV creation never hands out the same code.
func (s *codeSequence) Next(ctx context.Context, year int) (int64, error) {
	handle := db.FromContext(ctx, s.db).WithContext(ctx)

	var row spvCodeSequence
	err := handle.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("year = ?", year).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = spvCodeSequence{Year: year, Value: 1}
		if err := handle.Create(&row).Error; err != nil {
			return 0, err
		}
		return row.Value, nil
	}
	if err != nil {
		return 0, err
	}

	row.Value++
	if err := handle.Save(&row).Error; err != nil {
		return 0, err
	}
	return row.Value, nil
}
