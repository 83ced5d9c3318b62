package programs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultTimeout = 5 * time.Second

// Client は外部のプログラム情報サービスを呼ぶ。
// 404 は (nil, nil)、それ以外の失敗は error を返す。
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// GET /course-programs/{code}
func (c *Client) LookupByCourseCode(ctx context.Context, code string) (*Ref, error) {
	var ref Ref
	found, err := c.get(ctx, "/course-programs/"+url.PathEscape(code), &ref)
	if err != nil || !found {
		return nil, err
	}
	return &ref, nil
}

// GET /programs/{id}
func (c *Client) LookupDetails(ctx context.Context, id string) (*Details, error) {
	var d Details
	found, err := c.get(ctx, "/programs/"+url.PathEscape(id), &d)
	if err != nil || !found {
		return nil, err
	}
	return &d, nil
}

func (c *Client) get(ctx context.Context, path string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, res.Body)
		return false, nil
	case res.StatusCode < 200 || res.StatusCode > 299:
		_, _ = io.Copy(io.Discard, res.Body)
		return false, fmt.Errorf("programs: GET %s: unexpected status %d", path, res.StatusCode)
	}

	// 200 で null が返るケースも not found 扱い
	var raw json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return false, fmt.Errorf("programs: decode %s: %w", path, err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("programs: decode %s: %w", path, err)
	}
	return true, nil
}
