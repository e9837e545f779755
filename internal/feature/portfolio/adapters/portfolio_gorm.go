// Package adapters はportfolioフィーチャーのリポジトリ実装（データベース・ファイル）を提供します。
package adapters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"portfolio_tracker/internal/feature/portfolio/domain/entity"
	"portfolio_tracker/internal/feature/portfolio/usecase"
)

// PortfolioModel は portfolios テーブルの行です。
type PortfolioModel struct {
	ID        uint           `gorm:"primaryKey"`
	Name      string         `gorm:"size:100;not null;uniqueIndex"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime:false"`
	Holdings  []HoldingModel `gorm:"foreignKey:PortfolioID;constraint:OnDelete:CASCADE"`
}

func (PortfolioModel) TableName() string {
	return "portfolios"
}

// HoldingModel は holdings テーブルの行です。(portfolio_id, symbol) は一意です。
type HoldingModel struct {
	ID            uint            `gorm:"primaryKey"`
	PortfolioID   uint            `gorm:"not null;uniqueIndex:holding_portfolio_symbol,priority:1"`
	Symbol        string          `gorm:"size:32;not null;uniqueIndex:holding_portfolio_symbol,priority:2"`
	Shares        decimal.Decimal `gorm:"type:numeric(20,8);not null"`
	PurchasePrice decimal.Decimal `gorm:"type:numeric(20,8);not null"`
	PurchaseDate  time.Time       `gorm:"not null"`
	UpdatedAt     time.Time       `gorm:"not null;autoUpdateTime:false"`
}

func (HoldingModel) TableName() string {
	return "holdings"
}

// Migrate は portfolios / holdings テーブルを作成または更新します。
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&PortfolioModel{}, &HoldingModel{})
}

// portfolioGorm はPortfolioRepositoryインターフェースのGORM実装です。
// 更新系の操作はすべて1つのトランザクション内で実行されます。
type portfolioGorm struct {
	db *gorm.DB
}

// portfolioGormがPortfolioRepositoryを実装していることをコンパイル時に検証します。
var _ usecase.PortfolioRepository = (*portfolioGorm)(nil)

// NewPortfolioGorm は指定されたgorm.DB接続でportfolioGormの新しいインスタンスを生成します。
func NewPortfolioGorm(db *gorm.DB) *portfolioGorm {
	return &portfolioGorm{db: db}
}

// Create はポートフォリオを追加します。
// 同名のポートフォリオが既に存在する場合、usecase.ErrPortfolioAlreadyExistsを返します。
func (r *portfolioGorm) Create(ctx context.Context, p entity.Portfolio) error {
	m := toPortfolioModel(p)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&m).Error
	})
	return mapError(err)
}

// List は名前順のポートフォリオ一覧を保有込みで返します。
func (r *portfolioGorm) List(ctx context.Context) ([]entity.Portfolio, error) {
	var rows []PortfolioModel
	if err := r.preloaded(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, mapError(err)
	}
	out := make([]entity.Portfolio, 0, len(rows))
	for _, m := range rows {
		out = append(out, toPortfolioEntity(m))
	}
	return out, nil
}

// Get は名前でポートフォリオを取得します。
// 存在しない場合、usecase.ErrPortfolioNotFoundを返します。
func (r *portfolioGorm) Get(ctx context.Context, name string) (entity.Portfolio, error) {
	var m PortfolioModel
	if err := r.preloaded(ctx).Where("name = ?", name).First(&m).Error; err != nil {
		return entity.Portfolio{}, mapError(err)
	}
	return toPortfolioEntity(m), nil
}

// AddHolding は保有を追加します。同じ銘柄が既にある場合は統合して更新します。
func (r *portfolioGorm) AddHolding(ctx context.Context, name string, h entity.Holding) (entity.Holding, error) {
	var out entity.Holding
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pid, err := portfolioID(tx, name)
		if err != nil {
			return err
		}

		var existing HoldingModel
		err = tx.Where("portfolio_id = ? AND symbol = ?", pid, h.Symbol).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			m := toHoldingModel(pid, h)
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
			out = h
			return nil
		case err != nil:
			return err
		}

		out = toHoldingEntity(existing).Merge(h)
		return tx.Model(&existing).Updates(holdingColumns(out)).Error
	})
	if err != nil {
		return entity.Holding{}, mapError(err)
	}
	return out, nil
}

// UpdateHolding は既存の保有を置き換えます。
// 銘柄が存在しない場合、usecase.ErrHoldingNotFoundを返します。
func (r *portfolioGorm) UpdateHolding(ctx context.Context, name string, h entity.Holding) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pid, err := portfolioID(tx, name)
		if err != nil {
			return err
		}
		var existing HoldingModel
		err = tx.Where("portfolio_id = ? AND symbol = ?", pid, h.Symbol).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", usecase.ErrHoldingNotFound, h.Symbol)
		}
		if err != nil {
			return err
		}
		return tx.Model(&existing).Updates(holdingColumns(h)).Error
	})
	return mapError(err)
}

// RemoveHolding は保有を削除します。
// 銘柄が存在しない場合、usecase.ErrHoldingNotFoundを返します。
func (r *portfolioGorm) RemoveHolding(ctx context.Context, name, symbol string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pid, err := portfolioID(tx, name)
		if err != nil {
			return err
		}
		res := tx.Where("portfolio_id = ? AND symbol = ?", pid, symbol).Delete(&HoldingModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", usecase.ErrHoldingNotFound, symbol)
		}
		return nil
	})
	return mapError(err)
}

// Delete はポートフォリオと保有を削除します。
// 外部キーの ON DELETE CASCADE に加え、外部キーを強制しない接続でも保有が残らないよう明示的に削除します。
func (r *portfolioGorm) Delete(ctx context.Context, name string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pid, err := portfolioID(tx, name)
		if err != nil {
			return err
		}
		if err := tx.Where("portfolio_id = ?", pid).Delete(&HoldingModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&PortfolioModel{}, pid).Error
	})
	return mapError(err)
}

// Import は複数のポートフォリオを保有込みで1つのトランザクションで追加します。
func (r *portfolioGorm) Import(ctx context.Context, portfolios []entity.Portfolio) error {
	if len(portfolios) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range portfolios {
			m := toPortfolioModel(p)
			if err := tx.Create(&m).Error; err != nil {
				return fmt.Errorf("import %q: %w", p.Name, err)
			}
		}
		return nil
	})
	return mapError(err)
}

// Count はポートフォリオの件数を返します。
func (r *portfolioGorm) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&PortfolioModel{}).Count(&n).Error; err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

func (r *portfolioGorm) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Holdings", func(db *gorm.DB) *gorm.DB {
		return db.Order("symbol")
	})
}

func portfolioID(tx *gorm.DB, name string) (uint, error) {
	var m PortfolioModel
	if err := tx.Select("id").Where("name = ?", name).First(&m).Error; err != nil {
		return 0, err
	}
	return m.ID, nil
}

func holdingColumns(h entity.Holding) map[string]any {
	return map[string]any{
		"shares":         h.Shares,
		"purchase_price": h.PurchasePrice,
		"purchase_date":  h.PurchaseDate,
		"updated_at":     h.UpdatedAt,
	}
}

func toPortfolioModel(p entity.Portfolio) PortfolioModel {
	m := PortfolioModel{Name: p.Name, CreatedAt: p.CreatedAt}
	for _, h := range p.Holdings {
		m.Holdings = append(m.Holdings, toHoldingModel(0, h))
	}
	return m
}

func toHoldingModel(pid uint, h entity.Holding) HoldingModel {
	return HoldingModel{
		PortfolioID:   pid,
		Symbol:        h.Symbol,
		Shares:        h.Shares,
		PurchasePrice: h.PurchasePrice,
		PurchaseDate:  h.PurchaseDate,
		UpdatedAt:     h.UpdatedAt,
	}
}

func toPortfolioEntity(m PortfolioModel) entity.Portfolio {
	p := entity.Portfolio{
		Name:      m.Name,
		CreatedAt: m.CreatedAt.UTC(),
		Holdings:  make([]entity.Holding, 0, len(m.Holdings)),
	}
	for _, h := range m.Holdings {
		p.Holdings = append(p.Holdings, toHoldingEntity(h))
	}
	return p
}

func toHoldingEntity(m HoldingModel) entity.Holding {
	return entity.Holding{
		Symbol:        m.Symbol,
		Shares:        m.Shares,
		PurchasePrice: m.PurchasePrice,
		PurchaseDate:  entity.Date(m.PurchaseDate.UTC()),
		UpdatedAt:     m.UpdatedAt.UTC(),
	}
}

// mapError はドライバのエラーをusecaseのセンチネルエラーに変換します。
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, usecase.ErrHoldingNotFound),
		errors.Is(err, usecase.ErrPortfolioNotFound),
		errors.Is(err, usecase.ErrPortfolioAlreadyExists):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return usecase.ErrPortfolioNotFound
	case isUniqueViolation(err):
		return usecase.ErrPortfolioAlreadyExists
	default:
		return fmt.Errorf("%w: %w", usecase.ErrStoreUnavailable, err)
	}
}

func isUniqueViolation(err error) bool {
	// PostgreSQL 23505: unique_violation
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	// MySQLエラー1062: ユニークキーの重複エントリ
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return true
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}
