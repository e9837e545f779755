// Package handler はportfolioフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio_tracker/internal/feature/portfolio/domain/entity"
	"portfolio_tracker/internal/feature/portfolio/transport/http/dto"
	"portfolio_tracker/internal/feature/portfolio/usecase"
)

// PortfolioUsecase はポートフォリオ操作のユースケースインターフェースを定義します。
type PortfolioUsecase interface {
	CreatePortfolio(ctx context.Context, name string) (entity.Portfolio, error)
	ListPortfolios(ctx context.Context) ([]entity.Portfolio, error)
	GetPortfolio(ctx context.Context, name string) (entity.Portfolio, error)
	DeletePortfolio(ctx context.Context, name string) error
	AddHolding(ctx context.Context, name string, in usecase.HoldingInput) (entity.Holding, error)
	UpdateHolding(ctx context.Context, name, symbol string, in usecase.UpdateInput) (entity.Holding, error)
	RemoveHolding(ctx context.Context, name, symbol string) error
	Valuate(ctx context.Context, name string) (entity.Valuation, error)
	Summary(ctx context.Context, name string) (entity.Summary, error)
	Performance(ctx context.Context, name, period string) ([]entity.PerformancePoint, error)
	SectorAllocation(ctx context.Context, name string) (entity.SectorAllocation, error)
}

// PortfolioHandler はポートフォリオのHTTPリクエストを処理します。
type PortfolioHandler struct {
	uc PortfolioUsecase
}

// NewPortfolioHandler はPortfolioHandlerの新しいインスタンスを生成します。
func NewPortfolioHandler(uc PortfolioUsecase) *PortfolioHandler {
	return &PortfolioHandler{uc: uc}
}

// List はポートフォリオ一覧を返します。
//
// エンドポイント例:
// GET /portfolios
func (h *PortfolioHandler) List(c *gin.Context) {
	ps, err := h.uc.ListPortfolios(c.Request.Context())
	if err != nil {
		h.fail(c, "list portfolios failed", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromPortfolios(ps))
}

// Create はポートフォリオを作成します。
// - 名前が空・長すぎる場合は400
// - 同名が既にある場合は409
//
// エンドポイント例:
// POST /portfolios {"name":"Retirement"}
func (h *PortfolioHandler) Create(c *gin.Context) {
	var req dto.CreatePortfolioReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("create portfolio validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	p, err := h.uc.CreatePortfolio(c.Request.Context(), req.Name)
	if err != nil {
		h.fail(c, "create portfolio failed", err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromPortfolio(p))
}

// Get はポートフォリオを保有込みで返します。
//
// エンドポイント例:
// GET /portfolios/:name
func (h *PortfolioHandler) Get(c *gin.Context) {
	p, err := h.uc.GetPortfolio(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, "get portfolio failed", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromPortfolio(p))
}

// Delete はポートフォリオを削除します。
//
// エンドポイント例:
// DELETE /portfolios/:name
func (h *PortfolioHandler) Delete(c *gin.Context) {
	if err := h.uc.DeletePortfolio(c.Request.Context(), c.Param("name")); err != nil {
		h.fail(c, "delete portfolio failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddHolding は保有を追加します。purchase_price を省略すると現在値で補完します。
//
// エンドポイント例:
// POST /portfolios/:name/holdings {"symbol":"AAPL","shares":"10"}
func (h *PortfolioHandler) AddHolding(c *gin.Context) {
	var req dto.AddHoldingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("add holding validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	date, err := dto.ParseDate(req.PurchaseDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	added, err := h.uc.AddHolding(c.Request.Context(), c.Param("name"), usecase.HoldingInput{
		Symbol:        req.Symbol,
		Shares:        *req.Shares,
		PurchasePrice: req.PurchasePrice,
		PurchaseDate:  date,
	})
	if err != nil {
		h.fail(c, "add holding failed", err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromHolding(added))
}

// UpdateHolding は保有の株数と取得単価を置き換えます。
//
// エンドポイント例:
// PUT /portfolios/:name/holdings/:symbol {"shares":"5","purchase_price":"150"}
func (h *PortfolioHandler) UpdateHolding(c *gin.Context) {
	var req dto.UpdateHoldingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("update holding validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	date, err := dto.ParseDate(req.PurchaseDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.uc.UpdateHolding(c.Request.Context(), c.Param("name"), c.Param("symbol"), usecase.UpdateInput{
		Shares:        *req.Shares,
		PurchasePrice: *req.PurchasePrice,
		PurchaseDate:  date,
	})
	if err != nil {
		h.fail(c, "update holding failed", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromHolding(updated))
}

// RemoveHolding は保有を削除します。
//
// エンドポイント例:
// DELETE /portfolios/:name/holdings/:symbol
func (h *PortfolioHandler) RemoveHolding(c *gin.Context) {
	if err := h.uc.RemoveHolding(c.Request.Context(), c.Param("name"), c.Param("symbol")); err != nil {
		h.fail(c, "remove holding failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Valuation は現在値でのポートフォリオ評価を返します。
//
// エンドポイント例:
// GET /portfolios/:name/valuation
func (h *PortfolioHandler) Valuation(c *gin.Context) {
	v, err := h.uc.Valuate(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, "valuate portfolio failed", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromValuation(v))
}

// Summary はポートフォリオの概要を返します。
//
// エンドポイント例:
// GET /portfolios/:name/summary
func (h *PortfolioHandler) Summary(c *gin.Context) {
	s, err := h.uc.Summary(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, "portfolio summary failed", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromSummary(s))
}

// Sectors はセクターごとの保有銘柄数を返します。
//
// エンドポイント例:
// GET /portfolios/:name/sectors
func (h *PortfolioHandler) Sectors(c *gin.Context) {
	a, err := h.uc.SectorAllocation(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, "portfolio sectors failed", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromSectorAllocation(a))
}

// Performance は期間内の日次評価額を返します。
//
// エンドポイント例:
// GET /portfolios/:name/performance?period=6mo
func (h *PortfolioHandler) Performance(c *gin.Context) {
	points, err := h.uc.Performance(c.Request.Context(), c.Param("name"), c.Query("period"))
	if err != nil {
		h.fail(c, "portfolio performance failed", err)
		return
	}
	c.JSON(http.StatusOK, dto.FromPerformance(points))
}

// fail はusecaseのエラーをHTTPステータスに変換します。
func (h *PortfolioHandler) fail(c *gin.Context, msg string, err error) {
	status, body := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error(msg, "error", err, "path", c.FullPath())
	} else {
		slog.Warn(msg, "error", err, "path", c.FullPath())
	}
	c.JSON(status, gin.H{"error": body})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, usecase.ErrPortfolioNotFound), errors.Is(err, usecase.ErrHoldingNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, usecase.ErrPortfolioAlreadyExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, usecase.ErrInvalidPortfolioName),
		errors.Is(err, usecase.ErrInvalidHolding),
		errors.Is(err, usecase.ErrInvalidPeriod):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, usecase.ErrPriceUnavailable):
		return http.StatusUnprocessableEntity, "current price unavailable; provide purchase_price"
	case errors.Is(err, usecase.ErrStoreUnavailable), errors.Is(err, usecase.ErrSerialization):
		return http.StatusServiceUnavailable, "portfolio store unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
