package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"portfolio_tracker/internal/feature/portfolio/domain/entity"
	"portfolio_tracker/internal/feature/portfolio/usecase"
)

const dateLayout = "2006-01-02"

type fileDocument struct {
	Portfolios []filePortfolio `json:"portfolios"`
}

type filePortfolio struct {
	Name      string        `json:"name"`
	CreatedAt time.Time     `json:"created_at"`
	Holdings  []fileHolding `json:"holdings"`
}

type fileHolding struct {
	Symbol        string          `json:"symbol"`
	Shares        decimal.Decimal `json:"shares"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	PurchaseDate  string          `json:"purchase_date"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// portfolioFile はJSONファイル1つに全ポートフォリオを保存するPortfolioRepository実装です。
// 書き込みは一時ファイルへの出力とリネームで行い、途中で失敗しても既存のファイルを壊しません。
type portfolioFile struct {
	path string
	mu   sync.Mutex
}

var _ usecase.PortfolioRepository = (*portfolioFile)(nil)

// NewPortfolioFile は path を保存先とするportfolioFileを生成します。
// ファイルは最初の書き込み時に作成されます。
func NewPortfolioFile(path string) *portfolioFile {
	return &portfolioFile{path: path}
}

// Path は保存先のファイルパスを返します。
func (r *portfolioFile) Path() string {
	return r.path
}

func (r *portfolioFile) Create(ctx context.Context, p entity.Portfolio) error {
	return r.mutate(ctx, func(ps []entity.Portfolio) ([]entity.Portfolio, error) {
		if _, ok := findPortfolio(ps, p.Name); ok {
			return nil, fmt.Errorf("%w: %s", usecase.ErrPortfolioAlreadyExists, p.Name)
		}
		return append(ps, p), nil
	})
}

func (r *portfolioFile) List(ctx context.Context) ([]entity.Portfolio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ps, err := r.load()
	if err != nil {
		return nil, err
	}
	slices.SortFunc(ps, func(a, b entity.Portfolio) int { return strings.Compare(a.Name, b.Name) })
	return ps, nil
}

func (r *portfolioFile) Get(ctx context.Context, name string) (entity.Portfolio, error) {
	ps, err := r.List(ctx)
	if err != nil {
		return entity.Portfolio{}, err
	}
	i, ok := findPortfolio(ps, name)
	if !ok {
		return entity.Portfolio{}, fmt.Errorf("%w: %s", usecase.ErrPortfolioNotFound, name)
	}
	return ps[i], nil
}

func (r *portfolioFile) AddHolding(ctx context.Context, name string, h entity.Holding) (entity.Holding, error) {
	var out entity.Holding
	err := r.mutate(ctx, func(ps []entity.Portfolio) ([]entity.Portfolio, error) {
		i, ok := findPortfolio(ps, name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", usecase.ErrPortfolioNotFound, name)
		}
		out = ps[i].Upsert(h)
		return ps, nil
	})
	if err != nil {
		return entity.Holding{}, err
	}
	return out, nil
}

func (r *portfolioFile) UpdateHolding(ctx context.Context, name string, h entity.Holding) error {
	return r.mutate(ctx, func(ps []entity.Portfolio) ([]entity.Portfolio, error) {
		i, ok := findPortfolio(ps, name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", usecase.ErrPortfolioNotFound, name)
		}
		if !ps[i].Replace(h) {
			return nil, fmt.Errorf("%w: %s", usecase.ErrHoldingNotFound, h.Symbol)
		}
		return ps, nil
	})
}

func (r *portfolioFile) RemoveHolding(ctx context.Context, name, symbol string) error {
	return r.mutate(ctx, func(ps []entity.Portfolio) ([]entity.Portfolio, error) {
		i, ok := findPortfolio(ps, name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", usecase.ErrPortfolioNotFound, name)
		}
		if !ps[i].Remove(symbol) {
			return nil, fmt.Errorf("%w: %s", usecase.ErrHoldingNotFound, symbol)
		}
		return ps, nil
	})
}

func (r *portfolioFile) Delete(ctx context.Context, name string) error {
	return r.mutate(ctx, func(ps []entity.Portfolio) ([]entity.Portfolio, error) {
		i, ok := findPortfolio(ps, name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", usecase.ErrPortfolioNotFound, name)
		}
		return slices.Delete(ps, i, i+1), nil
	})
}

// mutate はファイルを読み込み、fn の結果を書き戻します。fn がエラーを返した場合は書き込みません。
func (r *portfolioFile) mutate(ctx context.Context, fn func([]entity.Portfolio) ([]entity.Portfolio, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	ps, err := r.load()
	if err != nil {
		return err
	}
	ps, err = fn(ps)
	if err != nil {
		return err
	}
	return r.save(ps)
}

// load は保存ファイルを読み込みます。ファイルが無い場合は空の集合を返します。
func (r *portfolioFile) load() ([]entity.Portfolio, error) {
	b, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []entity.Portfolio{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", usecase.ErrStoreUnavailable, r.path, err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return []entity.Portfolio{}, nil
	}

	var doc fileDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", usecase.ErrSerialization, r.path, err)
	}

	out := make([]entity.Portfolio, 0, len(doc.Portfolios))
	for _, fp := range doc.Portfolios {
		p, err := fp.toEntity()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", usecase.ErrSerialization, r.path, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *portfolioFile) save(ps []entity.Portfolio) error {
	doc := fileDocument{Portfolios: make([]filePortfolio, 0, len(ps))}
	for _, p := range ps {
		doc.Portfolios = append(doc.Portfolios, fromEntity(p))
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", usecase.ErrSerialization, err)
	}
	if err := writeFileAtomic(r.path, append(b, '\n')); err != nil {
		return fmt.Errorf("%w: write %s: %w", usecase.ErrStoreUnavailable, r.path, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func findPortfolio(ps []entity.Portfolio, name string) (int, bool) {
	for i, p := range ps {
		if p.Name == name {
			return i, true
		}
	}
	return -1, false
}

func fromEntity(p entity.Portfolio) filePortfolio {
	fp := filePortfolio{Name: p.Name, CreatedAt: p.CreatedAt.UTC(), Holdings: make([]fileHolding, 0, len(p.Holdings))}
	for _, h := range p.Holdings {
		fp.Holdings = append(fp.Holdings, fileHolding{
			Symbol:        h.Symbol,
			Shares:        h.Shares,
			PurchasePrice: h.PurchasePrice,
			PurchaseDate:  h.PurchaseDate.Format(dateLayout),
			UpdatedAt:     h.UpdatedAt.UTC(),
		})
	}
	return fp
}

func (fp filePortfolio) toEntity() (entity.Portfolio, error) {
	if strings.TrimSpace(fp.Name) == "" {
		return entity.Portfolio{}, errors.New("portfolio without name")
	}
	p := entity.Portfolio{Name: fp.Name, CreatedAt: fp.CreatedAt.UTC(), Holdings: make([]entity.Holding, 0, len(fp.Holdings))}
	for _, fh := range fp.Holdings {
		if fh.Symbol == "" {
			return entity.Portfolio{}, fmt.Errorf("portfolio %q: holding without symbol", fp.Name)
		}
		date, err := time.Parse(dateLayout, fh.PurchaseDate)
		if err != nil {
			return entity.Portfolio{}, fmt.Errorf("portfolio %q: %s: purchase_date: %w", fp.Name, fh.Symbol, err)
		}
		p.Holdings = append(p.Holdings, entity.Holding{
			Symbol:        fh.Symbol,
			Shares:        fh.Shares,
			PurchasePrice: fh.PurchasePrice,
			PurchaseDate:  date,
			UpdatedAt:     fh.UpdatedAt.UTC(),
		})
	}
	p.SortHoldings()
	return p, nil
}
