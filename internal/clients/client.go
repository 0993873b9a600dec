// internal/clients/client.go
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"shelfmark/internal/catalog"
	"shelfmark/internal/circulation"
)

// Client calls the shelfmark HTTP API. Used by shelfctl; the zero timeout
// of http.DefaultClient is avoided by letting callers pass their own.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Search returns ranked titles with availability counts.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]catalog.SearchResult, error) {
	u := fmt.Sprintf("%s/search?q=%s", c.baseURL, url.QueryEscape(query))
	if limit > 0 {
		u += "&limit=" + strconv.Itoa(limit)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	var results []catalog.SearchResult
	if err := c.do(req, http.StatusOK, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// GetBook fetches one copy by barcode.
func (c *Client) GetBook(ctx context.Context, barcode string) (*catalog.BookRecord, error) {
	u := fmt.Sprintf("%s/books/%s", c.baseURL, url.PathEscape(barcode))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	book := &catalog.BookRecord{}
	if err := c.do(req, http.StatusOK, book); err != nil {
		return nil, err
	}
	return book, nil
}

// Purchase submits a purchase transaction.
func (c *Client) Purchase(ctx context.Context, treq circulation.Request) (*circulation.Receipt, error) {
	return c.transact(ctx, "purchase", treq)
}

// Return submits a return transaction.
func (c *Client) Return(ctx context.Context, treq circulation.Request) (*circulation.Receipt, error) {
	return c.transact(ctx, "return", treq)
}

func (c *Client) transact(ctx context.Context, op string, treq circulation.Request) (*circulation.Receipt, error) {
	body, err := json.Marshal(treq)
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/circulation/%s", c.baseURL, op)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	receipt := &circulation.Receipt{}
	if err := c.do(req, http.StatusOK, receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

func (c *Client) do(req *http.Request, want int, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: %s: %s", req.Method, req.URL.Path, resp.Status, strings.TrimSpace(string(msg)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
