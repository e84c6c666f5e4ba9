// Package macrometa implements store.Store against a Macrometa GDN fabric
// (ArangoDB HTTP API dialect) reached over plain HTTP.
package macrometa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/roomcast/roomcast-server/internal/store"
)

// Options configures the fabric client.
type Options struct {
	// BaseURL is the GDN endpoint, e.g. https://api-host.paas.macrometa.io.
	BaseURL string
	// APIKey is sent as "Authorization: apikey <key>".
	APIKey string
	// Fabric is the fabric name, usually "_system".
	Fabric string
	// RequestTimeout bounds every store call.
	RequestTimeout time.Duration
	// BatchSize is the cursor batch size for history scans.
	BatchSize int
	// CursorTTL bounds server-side cursor retention between batches.
	CursorTTL time.Duration
}

// Client talks to one fabric. A single Client is shared by all rooms; the
// underlying http.Client pools connections across every request.
type Client struct {
	opts Options
	http *http.Client
	log  *zerolog.Logger
}

// New builds a fabric client. Zero option fields get workable defaults.
func New(opts Options, logger *zerolog.Logger) *Client {
	if opts.Fabric == "" {
		opts.Fabric = "_system"
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.CursorTTL <= 0 {
		opts.CursorTTL = 30 * time.Second
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	return &Client{
		opts: opts,
		http: &http.Client{Timeout: opts.RequestTimeout},
		log:  logger,
	}
}

type collectionRequest struct {
	Name         string     `json:"name"`
	IsLocal      bool       `json:"isLocal"`
	KeyOptions   keyOptions `json:"keyOptions"`
	CacheEnabled bool       `json:"cacheEnabled"`
	WaitForSync  bool       `json:"waitForSync"`
	Stream       bool       `json:"stream"`
}

type keyOptions struct {
	AllowUserKeys bool   `json:"allowUserKeys"`
	Type          string `json:"type"`
}

type cursorRequest struct {
	Query     string         `json:"query"`
	BindVars  map[string]any `json:"bindVars,omitempty"`
	BatchSize int            `json:"batchSize"`
	TTL       int            `json:"ttl,omitempty"`
}

type cursorResponse struct {
	Result  []json.RawMessage `json:"result"`
	HasMore bool              `json:"hasMore"`
	ID      string            `json:"id"`
}

// DescribeCollection implements store.Store.
func (c *Client) DescribeCollection(ctx context.Context, name string) error {
	_, err := c.request(ctx, http.MethodGet, "/collection/"+name, nil)
	return err
}

// CreateCollection implements store.Store. The options mirror the fixed
// room-log configuration: global, auto-generated keys, no cache, no
// synchronous replication wait, stream-optimized.
func (c *Client) CreateCollection(ctx context.Context, name string) error {
	body := collectionRequest{
		Name:    name,
		IsLocal: false,
		KeyOptions: keyOptions{
			AllowUserKeys: false,
			Type:          "autoincrement",
		},
		CacheEnabled: false,
		WaitForSync:  false,
		Stream:       true,
	}
	_, err := c.request(ctx, http.MethodPost, "/collection", body)
	return err
}

// Append implements store.Store. The message fields travel as bind
// variables; only the validated collection name appears in query text.
func (c *Client) Append(ctx context.Context, room string, msg store.Message) (json.RawMessage, error) {
	if !store.ValidRoomName(room) {
		return nil, fmt.Errorf("append: invalid room name %q", room)
	}
	query := fmt.Sprintf(
		"INSERT { userName: @userName, message: @message, timestamp: @timestamp } IN %s",
		room,
	)
	body := cursorRequest{
		Query: query,
		BindVars: map[string]any{
			"userName":  msg.UserName,
			"message":   msg.Text,
			"timestamp": msg.Timestamp,
		},
		BatchSize: 1,
	}
	receipt, err := c.request(ctx, http.MethodPost, "/cursor", body)
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// ReadAll implements store.Store. It scans the whole collection, following
// the cursor while the store reports more batches.
func (c *Client) ReadAll(ctx context.Context, room string) ([]store.Document, error) {
	if !store.ValidRoomName(room) {
		return nil, fmt.Errorf("read: invalid room name %q", room)
	}
	body := cursorRequest{
		Query:     fmt.Sprintf("FOR doc IN %s RETURN doc", room),
		BatchSize: c.opts.BatchSize,
		TTL:       int(c.opts.CursorTTL / time.Second),
	}

	raw, err := c.request(ctx, http.MethodPost, "/cursor", body)
	if err != nil {
		return nil, err
	}

	var docs []store.Document
	for {
		var page cursorResponse
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("decode cursor response: %w", err)
		}
		for _, item := range page.Result {
			var doc store.Document
			if err := json.Unmarshal(item, &doc); err != nil {
				return nil, fmt.Errorf("decode document: %w", err)
			}
			docs = append(docs, doc)
		}
		if !page.HasMore {
			return docs, nil
		}
		raw, err = c.request(ctx, http.MethodPut, "/cursor/"+page.ID, nil)
		if err != nil {
			return nil, err
		}
	}
}

// request performs one fabric API call and returns the raw response body.
// Any non-2xx status becomes a *store.StatusError carrying status and body.
func (c *Client) request(ctx context.Context, method, endpoint string, body any) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/_fabric/%s/_api%s", c.opts.BaseURL, c.opts.Fabric, endpoint)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.opts.APIKey != "" {
		req.Header.Set("Authorization", "apikey "+c.opts.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Debug().
			Str("method", method).
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Msg("store request failed")
		return nil, &store.StatusError{Status: resp.StatusCode, Body: string(data)}
	}

	return json.RawMessage(data), nil
}
