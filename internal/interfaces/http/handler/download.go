package handler

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"notegen-api/internal/interfaces/http/dto"
	apperrors "notegen-api/pkg/errors"
	"notegen-api/pkg/logger"
	"notegen-api/pkg/metrics"
)

const (
	defaultDownloadName        = "image.png"
	defaultDownloadContentType = "image/jpeg"
	defaultDownloadTimeout     = 30 * time.Second
	maxDownloadBytes           = 20 << 20
)

// DownloadHandler 代理下载远端图片，绕过浏览器跨域限制
type DownloadHandler struct {
	client   *http.Client
	maxBytes int64
}

// NewDownloadHandler 创建下载处理器；只允许连接公网地址
func NewDownloadHandler(timeout time.Duration) *DownloadHandler {
	return newDownloadHandler(timeout, publicOnly)
}

func newDownloadHandler(timeout time.Duration, control func(network, address string, c syscall.RawConn) error) *DownloadHandler {
	if timeout <= 0 {
		timeout = defaultDownloadTimeout
	}
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   control,
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// 走代理时校验的是代理地址
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	return &DownloadHandler{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		maxBytes: maxDownloadBytes,
	}
}

// errBlockedAddress 目标解析到了内网、回环或链路本地地址
var errBlockedAddress = errors.New("destination address not allowed")

// publicOnly 在 DNS 解析之后、建立连接之前检查目标 IP，重定向的每一跳都会经过这里
func publicOnly(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || !isPublicIP(ip) {
		return fmt.Errorf("%w: %s", errBlockedAddress, host)
	}
	return nil
}

func isPublicIP(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast())
}

// Download 拉取远端图片并以附件形式返回
// @Summary 下载图片
// @Tags Download
// @Produce octet-stream
// @Param url query string true "图片地址"
// @Param filename query string false "文件名，默认 image.png"
// @Success 200 "image bytes"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /download [get]
func (h *DownloadHandler) Download(c *gin.Context) {
	ctx := c.Request.Context()

	raw := strings.TrimSpace(c.Query("url"))
	if raw == "" {
		metrics.DownloadTotal.WithLabelValues("rejected").Inc()
		respondError(c, apperrors.ErrInvalidParam.WithDetail("url is required"))
		return
	}
	target, err := url.Parse(raw)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		metrics.DownloadTotal.WithLabelValues("rejected").Inc()
		respondError(c, apperrors.ErrInvalidParam.WithDetail("url must be an http(s) address"))
		return
	}

	filename := strings.TrimSpace(c.Query("filename"))
	if filename == "" {
		filename = defaultDownloadName
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		metrics.DownloadTotal.WithLabelValues("rejected").Inc()
		respondError(c, apperrors.ErrInvalidParam.WithError(err))
		return
	}
	resp, err := h.client.Do(req)
	if errors.Is(err, errBlockedAddress) {
		metrics.DownloadTotal.WithLabelValues("rejected").Inc()
		logger.Warn(ctx, "download destination blocked", "host", target.Host)
		respondError(c, apperrors.ErrInvalidParam.WithDetail("url must point to a public address"))
		return
	}
	if err != nil {
		metrics.DownloadTotal.WithLabelValues("failed").Inc()
		logger.Warn(ctx, "download upstream unreachable", "host", target.Host, "error", err.Error())
		dto.InternalError(c, apperrors.ErrDownloadFailed.Message)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.DownloadTotal.WithLabelValues("failed").Inc()
		logger.Warn(ctx, "download upstream returned error", "host", target.Host, "status", resp.StatusCode)
		dto.InternalError(c, apperrors.ErrDownloadFailed.Message)
		return
	}

	if resp.ContentLength > h.maxBytes {
		metrics.DownloadTotal.WithLabelValues("failed").Inc()
		logger.Warn(ctx, "download upstream body too large", "host", target.Host, "size", resp.ContentLength)
		dto.InternalError(c, apperrors.ErrDownloadFailed.Message)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultDownloadContentType
	}

	metrics.DownloadTotal.WithLabelValues("success").Inc()
	// 未声明长度时按上限截断
	body := io.LimitReader(resp.Body, h.maxBytes)
	c.DataFromReader(http.StatusOK, resp.ContentLength, contentType, body, map[string]string{
		"Content-Disposition": contentDisposition(filename),
	})
}

// contentDisposition 文件名做 URL 编码，避免非 ASCII 字符破坏响应头
func contentDisposition(filename string) string {
	return fmt.Sprintf(`attachment; filename="%s"`, url.PathEscape(filename))
}
