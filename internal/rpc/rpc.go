package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"devhost-keeper/internal/config"
	"devhost-keeper/internal/models"
)

// ErrNotFound is returned for 404 responses from the status server.
var ErrNotFound = errors.New("not found")

// HTTPClient 定义状态服务客户端接口
type HTTPClient interface {
	Get(ctx context.Context, path string, params map[string]string) (*HTTPResponse, error)
	Post(ctx context.Context, path string, data interface{}) (*HTTPResponse, error)
	Close() error
}

// HTTPConfig 定义HTTP客户端配置
type HTTPConfig struct {
	Address string        // 状态服务侦听地址
	Network string        // unix,tcp
	Timeout time.Duration // 默认超时时间
	BaseURL string        // 基础URL
}

/**
 * Build the client configuration for the local status server
 * @param {config.ServerConfig} cfg - Server section of the application configuration
 * @returns {*HTTPConfig} Unix socket config when the socket exists, TCP otherwise
 */
func DefaultHTTPConfig(cfg config.ServerConfig) *HTTPConfig {
	c := &HTTPConfig{
		Address: cfg.Socket,
		Network: "unix",
		Timeout: 5 * time.Second,
		BaseURL: "http://localhost",
	}
	// 检查socket文件是否存在
	if _, err := os.Stat(c.Address); c.Address == "" || err != nil {
		c.Address = cfg.Address
		c.Network = "tcp"
	}
	if c.Address == "" {
		c.Address = "127.0.0.1:8899"
		c.Network = "tcp"
	}
	return c
}

// HTTPResponse 定义HTTP响应结构
type HTTPResponse struct {
	StatusCode int                 `json:"status_code"`
	Headers    map[string][]string `json:"headers"`
	Body       []byte              `json:"body"`
	Error      string              `json:"error"`
}

// OK reports a 2xx status.
func (r *HTTPResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals a successful body into v, or turns the response into an error.
func (r *HTTPResponse) Decode(v interface{}) error {
	if r.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, r.Error)
	}
	if !r.OK() {
		return fmt.Errorf("status %d: %s", r.StatusCode, r.Error)
	}
	return json.Unmarshal(r.Body, v)
}

// buildURL 构建完整的URL
func buildURL(baseURL, path string, params map[string]string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")

	if len(params) > 0 {
		q := u.Query()
		for key, value := range params {
			q.Set(key, value)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// serializeData 序列化请求数据
func serializeData(data interface{}) (io.Reader, error) {
	if data == nil {
		return nil, nil
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize data: %w", err)
	}
	return bytes.NewReader(jsonData), nil
}

// deserializeResponse 反序列化响应数据
func deserializeResponse(resp *http.Response) (*HTTPResponse, error) {
	defer resp.Body.Close()
	httpResp := &HTTPResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	httpResp.Body = body
	if httpResp.OK() {
		return httpResp, nil
	}
	if len(body) == 0 {
		httpResp.Error = resp.Status
	} else {
		var errBody models.ErrorResponse
		if err := json.Unmarshal(body, &errBody); err != nil {
			httpResp.Error = err.Error()
		} else {
			httpResp.Error = errBody.Error
		}
	}
	if httpResp.Error == "" {
		httpResp.Error = "Unknown error"
	}
	return httpResp, nil
}
