// 包 fetch 封装 HTTP 客户端（代理/超时/限速/重试），用于抓取页面、订阅与封面图。
// 重试采用指数退避：固定基准延迟 350ms，每次翻倍，共尝试 retries+1 次，
// 耗尽后以 TransportError 返回最后一次错误。
package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/time/rate"

	"go-newsletter-exporter/internal/model"
)

// baseDelay 为重试的首次退避延迟。
const baseDelay = 350 * time.Millisecond

// maxBodyBytes 为单次响应读取上限，避免异常页面拖垮内存。
const maxBodyBytes = 8 << 20

// Client 为带限速与重试的 HTTP 客户端。
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	retry   int
}

// Options 为客户端构造参数。
type Options struct {
	ProxyHTTP  string
	ProxyHTTPS string
	Timeout    time.Duration
	Retry      int
	// RPS 为对外请求速率上限（每秒请求数），<=0 表示不限速。
	RPS float64
}

// New 创建客户端，支持 http/https 代理、基础超时与全局限速。
func New(opts Options) (*Client, error) {
	transport := &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "https" && opts.ProxyHTTPS != "" {
				return url.Parse(opts.ProxyHTTPS)
			}
			if req.URL.Scheme == "http" && opts.ProxyHTTP != "" {
				return url.Parse(opts.ProxyHTTP)
			}
			return http.ProxyFromEnvironment(req)
		},
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	cl := &http.Client{Transport: transport}
	if opts.Timeout <= 0 {
		opts.Timeout = 25 * time.Second
	}
	cl.Timeout = opts.Timeout
	var limiter *rate.Limiter
	if opts.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), 1)
	}
	if opts.Retry < 0 {
		opts.Retry = 0
	}
	return &Client{http: cl, limiter: limiter, retry: opts.Retry}, nil
}

// Retry 返回客户端默认重试次数。
func (c *Client) Retry() int { return c.retry }

// get 执行一次带退避重试的 GET。retries < 0 时使用客户端默认值。
func (c *Client) get(ctx context.Context, rawURL string, retries int) (*http.Response, error) {
	if retries < 0 {
		retries = c.retry
	}
	var lastErr error
	delay := baseDelay
	attempts := retries + 1
	for i := 0; i < attempts; i++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if reqErr != nil {
			lastErr = fmt.Errorf("new request: %w", reqErr)
			break
		}
		// 使用常见浏览器 UA，减少 403/反爬误判；支持环境变量覆盖（NLE_UA）
		ua := os.Getenv("NLE_UA")
		if ua == "" {
			ua = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36"
		}
		req.Header.Set("User-Agent", ua)
		resp, err := c.http.Do(req)
		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}
		if err == nil {
			lastErr = fmt.Errorf("http status on attempt %d: %s", i+1, resp.Status)
			if resp.Body != nil {
				resp.Body.Close()
			}
		} else {
			lastErr = fmt.Errorf("request failed on attempt %d: %w", i+1, err)
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, &model.TransportError{URL: rawURL, Err: lastErr}
}

// FetchText 抓取文本内容，重试耗尽返回 TransportError。
func (c *Client) FetchText(ctx context.Context, rawURL string, retries int) (string, error) {
	resp, err := c.get(ctx, rawURL, retries)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &model.TransportError{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}
	return string(b), nil
}

// FetchBytes 抓取二进制内容（封面图等）。
func (c *Client) FetchBytes(ctx context.Context, rawURL string, retries int) ([]byte, error) {
	resp, err := c.get(ctx, rawURL, retries)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &model.TransportError{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}
	return b, nil
}
