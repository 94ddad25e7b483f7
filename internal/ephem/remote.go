package ephem

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	defaultRemoteQueryParam = "at"
	defaultRemoteTimeout    = 10 * time.Second
	maxRemoteBodyBytes      = 1 << 20
)

// RemoteProvider 调用外部星历 HTTP 服务，黄经通过 gjson 路径从响应中提取，
// 以兼容不同服务的响应结构。失败不在此层重试，由调用方决定整批中止。
type RemoteProvider struct {
	name         string
	baseURL      string
	queryParam   string
	responsePath string
	client       *http.Client
}

// RemoteOptions 外部星历源参数。
type RemoteOptions struct {
	Name         string
	BaseURL      string
	QueryParam   string
	ResponsePath string
	Timeout      time.Duration
}

func NewRemoteProvider(opts RemoteOptions) (*RemoteProvider, error) {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("remote ephemeris requires base_url")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("remote ephemeris base_url invalid: %w", err)
	}
	path := strings.TrimSpace(opts.ResponsePath)
	if path == "" {
		return nil, fmt.Errorf("remote ephemeris requires response_path")
	}
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = "remote"
	}
	param := strings.TrimSpace(opts.QueryParam)
	if param == "" {
		param = defaultRemoteQueryParam
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	return &RemoteProvider{
		name:         name,
		baseURL:      base,
		queryParam:   param,
		responsePath: path,
		client:       &http.Client{Timeout: timeout},
	}, nil
}

func (p *RemoteProvider) Name() string { return p.name }

func (p *RemoteProvider) MoonLongitude(ctx context.Context, t time.Time) (float64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return 0, fmt.Errorf("parse base_url: %w", err)
	}
	q := u.Query()
	q.Set(p.queryParam, t.UTC().Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBodyBytes))
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}
	value := gjson.GetBytes(body, p.responsePath)
	if !value.Exists() {
		return 0, fmt.Errorf("response path %q missing", p.responsePath)
	}
	if value.Type != gjson.Number {
		return 0, fmt.Errorf("response path %q is not a number: %s", p.responsePath, value.Raw)
	}
	return value.Float(), nil
}
