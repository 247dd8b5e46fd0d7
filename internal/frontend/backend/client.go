// Package backend 负责与聊天接口通信。
package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	// ChatPath 所有消息提交到的接口路径
	ChatPath = "/chat"
	// FieldUserInput 表单中承载用户输入的字段名
	FieldUserInput = "user_input"

	contentTypeForm = "application/x-www-form-urlencoded"
)

// NetworkError 在拿到响应状态之前或读取响应体时发生的失败。
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("chat request failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ProtocolError 非 2xx 响应。
type ProtocolError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("chat request returned %s", e.Status)
}

// Client 向后端提交用户输入，从不重试。
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Option 定制 Client。
type Option func(*Client)

// WithHTTPClient 替换底层 http.Client。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New 基于 baseURL 解析出 ChatPath，baseURL 必须是绝对地址。
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", baseURL, err)
	}
	if !base.IsAbs() {
		return nil, fmt.Errorf("backend url %q is not absolute", baseURL)
	}

	c := &Client{
		endpoint:   base.ResolveReference(&url.URL{Path: ChatPath}).String(),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint 返回解析后的聊天地址。
func (c *Client) Endpoint() string {
	return c.endpoint
}

// EncodeBody 生成 text 对应的表单请求体。
func EncodeBody(text string) string {
	return FieldUserInput + "=" + url.QueryEscape(text)
}

// Send 提交 text，原样返回响应体。
func (c *Client) Send(ctx context.Context, text string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(EncodeBody(text)))
	if err != nil {
		return "", &NetworkError{Err: err}
	}
	req.Header.Set("Content-Type", contentTypeForm)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &ProtocolError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	return string(body), nil
}
