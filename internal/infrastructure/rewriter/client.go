// Package rewriter 提供外部改写服务的 HTTP 客户端
package rewriter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"mtl-refine-api/internal/application/refine"
	"mtl-refine-api/internal/config"
	"mtl-refine-api/internal/infrastructure/persistence/redis"
	"mtl-refine-api/pkg/logger"
	"mtl-refine-api/pkg/metrics"
)

var tracer = otel.Tracer("rewriter")

// rateLimitPollInterval 限流等待的轮询间隔
const rateLimitPollInterval = 500 * time.Millisecond

// Client 改写服务 HTTP 客户端
// 单次调用失败后按配置退避重试一次，并按小说做滑动窗口限流
type Client struct {
	endpoint   string
	httpClient *http.Client
	retryDelay time.Duration
	limiter    *redis.RateLimiter
	rateLimit  int
	rateWindow time.Duration
}

// NewClient 创建改写服务客户端，limiter 可为 nil 表示不限流
func NewClient(cfg *config.RewriterConfig, limiter *redis.RateLimiter) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		httpClient: &http.Client{Timeout: timeout},
		retryDelay: retryDelay,
		limiter:    limiter,
		rateLimit:  cfg.RateLimit,
		rateWindow: cfg.RateWindow,
	}
}

// rewriteRequest 改写请求体
type rewriteRequest struct {
	Text string `json:"text"`
}

// rewriteResponse 改写响应体
type rewriteResponse struct {
	Text       string        `json:"text"`
	Edits      []refine.Edit `json:"edits"`
	Confidence *float64      `json:"confidence,omitempty"`
}

// Rewrite 调用改写服务
func (c *Client) Rewrite(ctx context.Context, novelID int64, text string) (*refine.RewriteResult, error) {
	ctx, span := tracer.Start(ctx, "rewriter.Client.Rewrite")
	span.SetAttributes(
		attribute.Int64("novel_id", novelID),
		attribute.Int("text_length", len(text)),
	)
	defer span.End()

	if err := c.waitForQuota(ctx, novelID); err != nil {
		span.RecordError(err)
		metrics.RewriterCallsTotal.WithLabelValues("rate_limited").Inc()
		return nil, err
	}

	start := time.Now()
	result, err := retry.DoWithData(
		func() (*refine.RewriteResult, error) {
			return c.call(ctx, text)
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.FromContext(ctx).Warn("rewriter call retrying",
				"attempt", n+1, "error", err)
		}),
	)
	metrics.RewriterCallDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		metrics.RewriterCallsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	metrics.RewriterCallsTotal.WithLabelValues("success").Inc()
	return result, nil
}

// waitForQuota 等待限流窗口放行
func (c *Client) waitForQuota(ctx context.Context, novelID int64) error {
	if c.limiter == nil || c.rateLimit <= 0 || c.rateWindow <= 0 {
		return nil
	}

	key := redis.BuildRewriterKey(novelID)
	for {
		allowed, err := c.limiter.Allow(ctx, key, c.rateLimit, c.rateWindow)
		if err != nil {
			// 限流器故障时放行，改写服务自身的超时仍然兜底
			logger.FromContext(ctx).Warn("rate limiter unavailable, proceeding", "error", err)
			return nil
		}
		if allowed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(rateLimitPollInterval):
		}
	}
}

// call 执行一次 HTTP 调用
func (c *Client) call(ctx context.Context, text string) (*refine.RewriteResult, error) {
	body, err := json.Marshal(rewriteRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rewrite request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build rewrite request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rewrite request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("rewrite service returned status %d: %s", resp.StatusCode, string(data))
	}

	var parsed rewriteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode rewrite response: %w", err)
	}

	return &refine.RewriteResult{
		Text:       parsed.Text,
		Edits:      parsed.Edits,
		Confidence: parsed.Confidence,
	}, nil
}
