package adapters

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"gorm.io/gorm"

	"portfolio_tracker/internal/feature/portfolio/usecase"
)

// BackupSuffix は移行済みファイルに付与される拡張子です。
const BackupSuffix = ".backup"

// MigrateFile はファイルバックエンドの内容をデータベースへ一度だけ移します。
//
// 移行はデータベースが空で、ファイルに1件以上のポートフォリオがある場合にのみ行われます。
// 成功するとファイルは path+".backup" にリネームされ、以降の起動では移行されません。
// 戻り値は移行したポートフォリオの件数です。
func MigrateFile(ctx context.Context, path string, db *gorm.DB) (int, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("%w: stat %s: %w", usecase.ErrStoreUnavailable, path, err)
	}

	portfolios, err := NewPortfolioFile(path).List(ctx)
	if err != nil {
		return 0, err
	}
	if len(portfolios) == 0 {
		return 0, nil
	}

	repo := NewPortfolioGorm(db)
	n, err := repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("database already has portfolios; skipping file migration", "path", path, "count", n)
		return 0, nil
	}

	if err := repo.Import(ctx, portfolios); err != nil {
		return 0, err
	}

	holdings := 0
	for _, p := range portfolios {
		holdings += len(p.Holdings)
	}
	slog.Info("migrated portfolios from file", "path", path, "portfolios", len(portfolios), "holdings", holdings)

	if err := os.Rename(path, path+BackupSuffix); err != nil {
		return len(portfolios), fmt.Errorf("%w: rename %s: %w", usecase.ErrStoreUnavailable, path, err)
	}
	return len(portfolios), nil
}
