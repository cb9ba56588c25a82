package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
)

// HTTP checks readiness by making an HTTP GET request.
// Any response with status < 500 is considered ready, so a proxy answering
// 401 behind basic auth counts as up.
type HTTP struct {
	URL      string // scheme://host:port
	Path     string // default "/"
	Insecure bool   // skip certificate verification, used for self-signed certs
}

func (h *HTTP) Check(ctx context.Context) error {
	path := h.Path
	if path == "" {
		path = "/"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL+path, nil)
	if err != nil {
		return err
	}

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	if h.Insecure {
		client.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}
