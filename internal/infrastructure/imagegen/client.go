// Package imagegen 封装文生图服务（OpenAI 兼容的 images/generations 协议）
package imagegen

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"

	"notegen-api/internal/config"
	apperrors "notegen-api/pkg/errors"
	"notegen-api/pkg/logger"
	"notegen-api/pkg/metrics"
)

const (
	defaultTimeout = 60 * time.Second
	defaultSize    = "2K"
	generationPath = "images/generations"
)

// urlPaths 按顺序匹配的响应结构
var urlPaths = []string{"url", "data.0.url", "output.url"}

// Client 文生图客户端
type Client struct {
	client    openai.Client
	provider  string
	model     string
	size      string
	watermark bool
}

type generationRequest struct {
	Model                     string `json:"model"`
	Prompt                    string `json:"prompt"`
	SequentialImageGeneration string `json:"sequential_image_generation"`
	ResponseFormat            string `json:"response_format"`
	Size                      string `json:"size"`
	Stream                    bool   `json:"stream"`
	Watermark                 bool   `json:"watermark"`
}

// NewClient 根据图片服务配置创建客户端；SDK 自带重试关闭，失败由调用方决定是否重试
func NewClient(cfg config.ProviderConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	size := strings.TrimSpace(cfg.Size)
	if size == "" {
		size = defaultSize
	}
	provider := strings.TrimSpace(cfg.Name)
	if provider == "" {
		provider = "ark"
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		opts = append(opts, option.WithBaseURL(base))
	}

	return &Client{
		client:    openai.NewClient(opts...),
		provider:  provider,
		model:     cfg.Model,
		size:      size,
		watermark: cfg.Watermark,
	}
}

// Generate 提交一次生成请求并返回图片 URL。
// 网络错误、超时与非 2xx 响应返回 ErrUpstreamUnavailable；响应中找不到 URL 返回 ErrUpstreamParse。
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	url, err := c.generate(ctx, prompt)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.UpstreamCallTotal.WithLabelValues(c.provider, c.model, status).Inc()
	metrics.UpstreamCallDuration.WithLabelValues(c.provider, c.model).Observe(time.Since(start).Seconds())
	return url, err
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	body := generationRequest{
		Model:                     c.model,
		Prompt:                    prompt,
		SequentialImageGeneration: "disabled",
		ResponseFormat:            "url",
		Size:                      c.size,
		Stream:                    false,
		Watermark:                 c.watermark,
	}

	var raw []byte
	if err := c.client.Post(ctx, generationPath, body, &raw); err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			logger.Warn(ctx, "image upstream returned error status",
				"provider", c.provider,
				"status", apiErr.StatusCode,
			)
		} else {
			logger.Warn(ctx, "image upstream request failed",
				"provider", c.provider,
				"error", err.Error(),
			)
		}
		return "", apperrors.ErrUpstreamUnavailable.WithError(err)
	}

	url, ok := ExtractImageURL(raw)
	if !ok {
		logger.Warn(ctx, "image upstream response has no url",
			"provider", c.provider,
			"body_size", len(raw),
		)
		return "", apperrors.ErrUpstreamParse
	}
	return url, nil
}

// ExtractImageURL 依次尝试 url、data[0].url、output.url
func ExtractImageURL(body []byte) (string, bool) {
	if !gjson.ValidBytes(body) {
		return "", false
	}
	for _, path := range urlPaths {
		v := gjson.GetBytes(body, path)
		if v.Type == gjson.String {
			if s := strings.TrimSpace(v.String()); s != "" {
				return s, true
			}
		}
	}
	return "", false
}
