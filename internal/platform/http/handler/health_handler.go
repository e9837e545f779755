// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Info はヘルスチェックで報告する稼働中のバックエンド情報です。
type Info struct {
	Store        string `json:"store"`         // "database" または "file"
	Cache        string `json:"cache"`         // "memory" または "redis"
	CachedQuotes int    `json:"cached_quotes"` // 保持中のキャッシュエントリ数
}

// Health はサービスヘルスチェック用の /healthz エンドポイントを返します。
// info が nil の場合は status のみを返します。
func Health(info func(ctx context.Context) Info) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 明示的にキャッシュを防止
		c.Header("Cache-Control", "no-store")

		switch c.Request.Method {
		case http.MethodHead:
			c.Status(http.StatusOK)
		case http.MethodOptions:
			c.Header("Allow", "GET, HEAD, OPTIONS")
			c.Status(http.StatusNoContent)
		default:
			body := gin.H{"status": "ok"}
			if info != nil {
				i := info(c.Request.Context())
				body["store"] = i.Store
				body["cache"] = i.Cache
				body["cached_quotes"] = i.CachedQuotes
			}
			c.JSON(http.StatusOK, body)
		}
	}
}
