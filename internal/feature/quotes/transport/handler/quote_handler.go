// Package handler はquotesフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio_tracker/internal/feature/quotes/domain/entity"
	"portfolio_tracker/internal/feature/quotes/transport/http/dto"
	"portfolio_tracker/internal/feature/quotes/usecase"
)

// QuoteUsecase は株価取得のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type QuoteUsecase interface {
	GetQuote(ctx context.Context, symbol string) (entity.Quote, error)
	GetQuotes(ctx context.Context, symbols []string) map[string]entity.Quote
	GetHistory(ctx context.Context, symbol, period string) (entity.History, error)
	GetStockInfo(ctx context.Context, symbol string) (entity.StockInfo, error)
	Compare(ctx context.Context, symbols []string, period string) ([]entity.Series, error)
	ClearCache(ctx context.Context) error
}

// QuoteHandler は株価データのHTTPリクエストを処理します。
type QuoteHandler struct {
	uc QuoteUsecase
}

// NewQuoteHandler は指定されたusecaseでQuoteHandlerの新しいインスタンスを生成します。
func NewQuoteHandler(uc QuoteUsecase) *QuoteHandler {
	return &QuoteHandler{uc: uc}
}

// GetQuote は銘柄の現在値を返します。
// 取得できない場合もエラーページではなく200で available=false を返します。
//
// エンドポイント例:
// GET /quotes/:symbol
func (h *QuoteHandler) GetQuote(c *gin.Context) {
	symbol := entity.NormalizeSymbol(c.Param("symbol"))

	q, err := h.uc.GetQuote(c.Request.Context(), symbol)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, dto.FromQuote(q))
	case errors.Is(err, usecase.ErrQuoteUnavailable):
		c.JSON(http.StatusOK, dto.Unavailable(symbol))
	case errors.Is(err, usecase.ErrInvalidSymbol):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		slog.Error("get quote failed", "symbol", symbol, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// GetQuotes は複数銘柄の現在値をリクエスト順に返します。
//
// エンドポイント例:
// GET /quotes?symbols=AAPL,MSFT
func (h *QuoteHandler) GetQuotes(c *gin.Context) {
	symbols := splitSymbols(c.Query("symbols"))
	if len(symbols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbols is required"})
		return
	}

	quotes := h.uc.GetQuotes(c.Request.Context(), symbols)
	out := make([]dto.QuoteResponse, 0, len(symbols))
	for _, s := range symbols {
		if q, ok := quotes[s]; ok {
			out = append(out, dto.FromQuote(q))
			continue
		}
		out = append(out, dto.Unavailable(s))
	}
	c.JSON(http.StatusOK, out)
}

// GetHistory は銘柄の履歴を返します。
//
// エンドポイント例:
// GET /quotes/:symbol/history?period=1y
func (h *QuoteHandler) GetHistory(c *gin.Context) {
	symbol := entity.NormalizeSymbol(c.Param("symbol"))

	hist, err := h.uc.GetHistory(c.Request.Context(), symbol, c.Query("period"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, dto.FromHistory(hist))
	case errors.Is(err, usecase.ErrHistoryUnavailable):
		c.JSON(http.StatusOK, dto.HistoryResponse{Symbol: symbol, Available: false})
	case errors.Is(err, usecase.ErrInvalidSymbol), errors.Is(err, usecase.ErrInvalidPeriod):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		slog.Error("get history failed", "symbol", symbol, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// GetInfo は銘柄の基本情報を返します。
//
// エンドポイント例:
// GET /quotes/:symbol/info
func (h *QuoteHandler) GetInfo(c *gin.Context) {
	symbol := entity.NormalizeSymbol(c.Param("symbol"))

	info, err := h.uc.GetStockInfo(c.Request.Context(), symbol)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, dto.FromStockInfo(info))
	case errors.Is(err, usecase.ErrQuoteUnavailable):
		c.JSON(http.StatusOK, dto.StockInfoResponse{Symbol: symbol, Available: false})
	case errors.Is(err, usecase.ErrInvalidSymbol):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		slog.Error("get stock info failed", "symbol", symbol, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// Compare は複数銘柄の正規化済み終値系列を返します。
//
// エンドポイント例:
// GET /quotes/compare?symbols=AAPL,MSFT&period=6mo
func (h *QuoteHandler) Compare(c *gin.Context) {
	symbols := splitSymbols(c.Query("symbols"))
	if len(symbols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbols is required"})
		return
	}

	series, err := h.uc.Compare(c.Request.Context(), symbols, c.Query("period"))
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidPeriod) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.Error("compare failed", "symbols", symbols, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, dto.FromSeries(series))
}

// ClearCache はキャッシュ済みの現在値をすべて破棄します。
//
// エンドポイント例:
// DELETE /quotes/cache
func (h *QuoteHandler) ClearCache(c *gin.Context) {
	if err := h.uc.ClearCache(c.Request.Context()); err != nil {
		slog.Error("clear cache failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cache unavailable"})
		return
	}
	slog.Info("quote cache cleared", "remote_addr", c.ClientIP())
	c.Status(http.StatusNoContent)
}

// splitSymbols はカンマ区切りの銘柄リストを正規化して分割します。
func splitSymbols(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = entity.NormalizeSymbol(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
