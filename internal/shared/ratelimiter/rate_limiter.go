// Package ratelimiter は外部APIの呼び出し頻度を制限します。
package ratelimiter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Limiter は、価格プロバイダーへの呼び出しなどの操作の頻度を制限するインターフェースです。
type Limiter interface {
	// Wait は呼び出しが許可されるまでブロックします。ctxがキャンセルされた場合はエラーを返します。
	Wait(ctx context.Context) error
}

// RateLimiter はトークンバケット方式で呼び出し回数を制限します。
// 最大 limit 回まで連続で許可し、以降は interval/limit ごとに1回ずつ補充されます。
// limit が 0 以下の場合は制限しません。
type RateLimiter struct {
	limit   int
	limiter *rate.Limiter
}

// NewRateLimiter は新しいRateLimiterのインスタンスを生成します。
func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	rl := &RateLimiter{limit: limit}
	if limit > 0 && interval > 0 {
		rl.limiter = rate.NewLimiter(rate.Every(interval/time.Duration(limit)), limit)
	}
	return rl
}

// Wait は枠を1つ予約し、予約が有効になるまで待機します。
// ctx が先に終了した場合は予約を取り消して枠を返却します。
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil || rl.limiter == nil {
		return nil
	}

	r := rl.limiter.Reserve()
	if !r.OK() {
		return errors.New("rate limiter: reservation not allowed")
	}
	delay := r.Delay()
	if delay <= 0 {
		return nil
	}
	slog.Warn("rate limit reached, waiting", "limit", rl.limit, "sleep", delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
