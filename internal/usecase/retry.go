package usecase

import (
	"context"
	"time"
)

// 外部サービス呼び出しのタイムアウトと再試行回数
type RetryPolicy struct {
	Timeout  time.Duration
	Attempts int
	Backoff  time.Duration
}

// タイムアウト付きで1回、一時的な失敗なら1回だけ再試行
func DefaultRetryPolicy(timeout time.Duration) RetryPolicy {
	return RetryPolicy{Timeout: timeout, Attempts: 2, Backoff: 200 * time.Millisecond}
}

func withRetry[T any](ctx context.Context, p RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var (
		out T
		err error
	)
	for i := 0; i < attempts; i++ {
		if i > 0 {
			t := time.NewTimer(p.Backoff)
			select {
			case <-ctx.Done():
				t.Stop()
				return out, err
			case <-t.C:
			}
		}

		out, err = callWithTimeout(ctx, p.Timeout, fn)
		if err == nil {
			return out, nil
		}
		// 呼び出し元がキャンセルしたら終わり
		if ctx.Err() != nil || !IsTransient(err) {
			return out, err
		}
	}
	return out, err
}

func callWithTimeout[T any](ctx context.Context, d time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}
	cctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(cctx)
}
