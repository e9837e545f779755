// Package router builds the gin route table.
package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	portfoliohandler "portfolio_tracker/internal/feature/portfolio/transport/handler"
	quotehandler "portfolio_tracker/internal/feature/quotes/transport/handler"
	"portfolio_tracker/internal/platform/http/middleware"
	jwtmw "portfolio_tracker/internal/platform/jwt"
)

// Options toggles the optional router features.
type Options struct {
	// CORS enables the gin-contrib/cors default policy for browser dashboards.
	CORS bool
	// JWTSecret, when set, requires a bearer token on every mutating route.
	JWTSecret string
}

// NewRouter wires handlers to routes.
func NewRouter(quotes *quotehandler.QuoteHandler, portfolios *portfoliohandler.PortfolioHandler,
	health gin.HandlerFunc, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger())
	if opts.CORS {
		r.Use(cors.Default())
	}

	// 導通確認用
	r.GET("/healthz", health)
	r.HEAD("/healthz", health)
	r.OPTIONS("/healthz", health)

	// 参照系は認証不要
	r.GET("/quotes", quotes.GetQuotes)
	r.GET("/quotes/compare", quotes.Compare)
	r.GET("/quotes/:symbol", quotes.GetQuote)
	r.GET("/quotes/:symbol/history", quotes.GetHistory)
	r.GET("/quotes/:symbol/info", quotes.GetInfo)

	r.GET("/portfolios", portfolios.List)
	r.GET("/portfolios/:name", portfolios.Get)
	r.GET("/portfolios/:name/valuation", portfolios.Valuation)
	r.GET("/portfolios/:name/summary", portfolios.Summary)
	r.GET("/portfolios/:name/performance", portfolios.Performance)
	r.GET("/portfolios/:name/sectors", portfolios.Sectors)

	// 更新系は JWT_SECRET 設定時のみトークン必須
	auth := r.Group("/")
	auth.Use(jwtmw.AuthRequired(opts.JWTSecret))
	{
		auth.DELETE("/quotes/cache", quotes.ClearCache)

		auth.POST("/portfolios", portfolios.Create)
		auth.DELETE("/portfolios/:name", portfolios.Delete)
		auth.POST("/portfolios/:name/holdings", portfolios.AddHolding)
		auth.PUT("/portfolios/:name/holdings/:symbol", portfolios.UpdateHolding)
		auth.DELETE("/portfolios/:name/holdings/:symbol", portfolios.RemoveHolding)
	}

	return r
}
