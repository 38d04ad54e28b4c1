package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

const (
	// DefaultFieldName 上传文档的表单字段名
	DefaultFieldName = "document"
	// DefaultUploadPath 评分服务上传路径
	DefaultUploadPath = "/upload"

	maxResponseBytes = 16 << 20
	maxErrorBytes    = 64 << 10
)

// ClientOptions 评分服务客户端选项
type ClientOptions struct {
	BaseURL    string
	UploadPath string
	FieldName  string
	HTTPClient *http.Client
}

// Client 评分服务客户端（单次 multipart 上传）
type Client struct {
	endpoint  string
	fieldName string
	http      *http.Client
}

// TransportError 上传失败：非 2xx 响应或网络错误
type TransportError struct {
	StatusCode int // 网络错误时为 0
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	return e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewClient 创建评分服务客户端
func NewClient(opts ClientOptions) *Client {
	path := opts.UploadPath
	if path == "" {
		path = DefaultUploadPath
	}
	field := opts.FieldName
	if field == "" {
		field = DefaultFieldName
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		endpoint:  strings.TrimRight(opts.BaseURL, "/") + "/" + strings.TrimLeft(path, "/"),
		fieldName: field,
		http:      hc,
	}
}

// Endpoint 上传地址
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Submit 上传文档并返回原始响应体
// 非 2xx 响应返回 *TransportError，消息优先使用响应体文本，否则使用状态描述。
func (c *Client) Submit(ctx context.Context, filename string, doc io.Reader) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(c.fieldName, filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, doc); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{
			Message: fmt.Sprintf("upload failed: %v", unwrapURLError(err)),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp, detail),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("read response: %v", err),
			Err:        err,
		}
	}
	return data, nil
}

func errorMessage(resp *http.Response, detail []byte) string {
	if msg := strings.TrimSpace(string(detail)); msg != "" {
		return msg
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", resp.StatusCode)
}

func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err
	}
	return err
}
