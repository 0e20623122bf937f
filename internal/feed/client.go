// Package feed fetches recent sale transactions from the commerce transactions API.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds a single feed request.
const DefaultTimeout = 30 * time.Second

// ErrUnexpectedStatus is returned for non-2xx feed responses.
var ErrUnexpectedStatus = errors.New("unexpected feed status")

// Source lists the newest transactions of a partition.
type Source interface {
	RecentTransactions(ctx context.Context, groupID int64, limit int) ([]Transaction, error)
}

// Options configures the Client.
type Options struct {
	BaseURL string
	// Token is sent as "Authorization: Bearer <token>" when set.
	Token   string
	Timeout time.Duration
}

// Client is a resty-backed transactions feed client.
// It never retries; a failed request surfaces to the caller and is retried on the next tick.
type Client struct {
	http *resty.Client
}

// NewClient creates a new feed client.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	c := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	if opts.Token != "" {
		c.SetAuthToken(opts.Token)
	}

	return &Client{http: c}
}

// Compile-time interface check.
var _ Source = (*Client)(nil)

// RecentTransactions returns up to limit sale transactions for groupID, newest first.
func (c *Client) RecentTransactions(ctx context.Context, groupID int64, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 10
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("groupID", strconv.FormatInt(groupID, 10)).
		SetQueryParams(map[string]string{
			"limit":           strconv.Itoa(limit),
			"sortOrder":       "Desc",
			"transactionType": "Sale",
		}).
		Get("/v2/groups/{groupID}/transactions")
	if err != nil {
		return nil, fmt.Errorf("fetch transactions for group %d: %w", groupID, err)
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("fetch transactions for group %d: %w: %d", groupID, ErrUnexpectedStatus, resp.StatusCode())
	}

	var page transactionPage
	if err := json.Unmarshal(resp.Body(), &page); err != nil {
		return nil, fmt.Errorf("decode transactions for group %d: %w", groupID, err)
	}

	return page.Data, nil
}
