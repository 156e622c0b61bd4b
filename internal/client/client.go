// Package client calls the booth feedback backend endpoints.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/godilite/booth-feedback/internal/feedback"
	"github.com/godilite/booth-feedback/pkg/fetch"
)

const (
	pathTranscribe  = "/api/transcribe"
	pathSubmit      = "/api/submit_feedback"
	pathAggregation = "/api/feedback/"
)

// Fetcher is the retrying transport the client runs on.
type Fetcher interface {
	Do(ctx context.Context, req fetch.Request) (fetch.Response, error)
}

// Client is a typed wrapper over the three backend endpoints.
type Client struct {
	fetcher Fetcher
	baseURL string
}

// New creates a Client rooted at baseURL.
func New(fetcher Fetcher, baseURL string) *Client {
	if fetcher == nil {
		panic("nil Fetcher provided to client.New")
	}
	return &Client{
		fetcher: fetcher,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Transcribe uploads encoded audio and returns the transcript and summary.
func (c *Client) Transcribe(ctx context.Context, req feedback.TranscribeRequest) (feedback.TranscribeResponse, error) {
	var out feedback.TranscribeResponse
	if err := c.post(ctx, pathTranscribe, req, &out); err != nil {
		return feedback.TranscribeResponse{}, fmt.Errorf("transcribe: %w", err)
	}
	return out, nil
}

// SubmitFeedback stores one feedback record.
func (c *Client) SubmitFeedback(ctx context.Context, req feedback.SubmitRequest) (feedback.SubmitResponse, error) {
	var out feedback.SubmitResponse
	if err := c.post(ctx, pathSubmit, req, &out); err != nil {
		return feedback.SubmitResponse{}, fmt.Errorf("submit feedback: %w", err)
	}
	return out, nil
}

// post sends body and decodes a 2xx answer into out. Any other status,
// including a 404 with a JSON body, is a *fetch.ProtocolError.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	resp, err := c.fetcher.Do(ctx, fetch.Request{
		Method: http.MethodPost,
		URL:    c.baseURL + path,
		Body:   body,
	})
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	if len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &fetch.MalformedResponseError{Status: resp.Status, Err: err}
	}
	return nil
}

// FetchAggregation returns the raw aggregation payload for identity. The
// identity is opaque and only path-escaped.
func (c *Client) FetchAggregation(ctx context.Context, identity string) (json.RawMessage, error) {
	resp, err := c.fetcher.Do(ctx, fetch.Request{
		Method: http.MethodGet,
		URL:    c.baseURL + pathAggregation + url.PathEscape(identity),
	})
	if err != nil {
		return nil, fmt.Errorf("fetch aggregation: %w", err)
	}
	return resp.Body, nil
}
