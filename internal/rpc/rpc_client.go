package rpc

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"devhost-keeper/internal/logger"
	"devhost-keeper/internal/models"
)

// APIPrefix is the route group served by the status server.
const APIPrefix = "/devhost/api/v1"

// httpClient HTTP客户端实现
type httpClient struct {
	config    *HTTPConfig
	client    *http.Client
	transport *http.Transport
	mu        sync.Mutex
}

/**
 * Create new HTTP client for the status server
 * @param {*HTTPConfig} config - Client configuration, nil uses a TCP client for 127.0.0.1:8899
 * @returns {HTTPClient} HTTP client interface
 * @description
 * - Dials the configured unix socket or TCP address whatever host the URL names
 * - No connection is made until the first request
 */
func NewHTTPClient(config *HTTPConfig) HTTPClient {
	if config == nil {
		config = &HTTPConfig{Address: "127.0.0.1:8899", Network: "tcp", BaseURL: "http://localhost"}
	}
	c := &httpClient{config: config}

	c.transport = &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, config.Network, config.Address)
		},
	}
	c.client = &http.Client{
		Transport: c.transport,
		Timeout:   config.Timeout,
	}
	return c
}

// Get 发送GET请求
func (c *httpClient) Get(ctx context.Context, path string, params map[string]string) (*HTTPResponse, error) {
	url, err := buildURL(c.config.BaseURL, path, params)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}
	logger.Debugf("Sending GET request to %s via %s://%s", url, c.config.Network, c.config.Address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req)
}

// Post 发送POST请求
func (c *httpClient) Post(ctx context.Context, path string, data interface{}) (*HTTPResponse, error) {
	url, err := buildURL(c.config.BaseURL, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}
	body, err := serializeData(data)
	if err != nil {
		return nil, err
	}
	logger.Debugf("Sending POST request to %s via %s://%s", url, c.config.Network, c.config.Address)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req)
}

func (c *httpClient) do(req *http.Request) (*HTTPResponse, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	httpResp, err := deserializeResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize response: %w", err)
	}
	return httpResp, nil
}

// Close 关闭空闲连接
func (c *httpClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transport.CloseIdleConnections()
	return nil
}

/**
 * Fetch the latest bootstrap report from a running status server
 * @param {context.Context} ctx - Request context
 * @param {HTTPClient} client - Status server client
 * @returns {*models.BootstrapReport} Report of the last run
 * @returns {error} ErrNotFound when no run has been recorded, transport errors otherwise
 */
func FetchReport(ctx context.Context, client HTTPClient) (*models.BootstrapReport, error) {
	resp, err := client.Get(ctx, APIPrefix+"/report", nil)
	if err != nil {
		return nil, err
	}
	var report models.BootstrapReport
	if err := resp.Decode(&report); err != nil {
		return nil, err
	}
	return &report, nil
}

// CheckService asks the status server to probe one service now.
func CheckService(ctx context.Context, client HTTPClient, name string) (models.ServiceCheckResult, error) {
	var res models.ServiceCheckResult
	resp, err := client.Post(ctx, fmt.Sprintf("%s/services/%s/check", APIPrefix, name), nil)
	if err != nil {
		return res, err
	}
	err = resp.Decode(&res)
	return res, err
}
