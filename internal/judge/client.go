// Package judge contains the code-execution orchestration engine: it batches
// test cases into one correlated request to the external judge service, polls
// the returned tokens until every case is terminal and folds the raw statuses
// into a closed verdict taxonomy.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codearena/internal/common"

	"go.uber.org/zap"
)

// BatchSubmission is the judge-side shape of one test case of a batch.
// ExpectedOutput is only set in judged mode; in bare-run mode the comparison
// happens locally and the field is never sent.
type BatchSubmission struct {
	SourceCode     string  `json:"source_code"`
	LanguageID     int     `json:"language_id"`
	Stdin          string  `json:"stdin"`
	ExpectedOutput *string `json:"expected_output,omitempty"`
}

// StatusInfo is the judge's raw status for one case.
type StatusInfo struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// CaseStatus is one entry of a batched status response. Time is seconds as a
// decimal string; Memory is kilobytes. Both are absent until the case ran.
type CaseStatus struct {
	Token  string     `json:"token"`
	Status StatusInfo `json:"status"`
	Stdout string     `json:"stdout"`
	Stderr string     `json:"stderr"`
	Time   string     `json:"time"`
	Memory *int       `json:"memory"`
}

// Client is the wire interface to the external judge service. Constructed once
// at startup and injected into every component that talks to the judge.
type Client interface {
	// CreateBatch dispatches the whole batch in one call and returns one
	// token per submission, positionally aligned with the request.
	CreateBatch(ctx context.Context, subs []BatchSubmission) ([]string, error)
	// BatchStatus queries the status of the full token set. The judge API
	// only supports full-set queries, never per-token ones.
	BatchStatus(ctx context.Context, tokens []string) ([]CaseStatus, error)
}

type HTTPClient struct {
	baseURL   string
	authToken string
	hc        *http.Client
	log       *zap.Logger
}

func NewHTTPClient(baseURL, authToken string, log *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		authToken: authToken,
		hc:        &http.Client{Timeout: 20 * time.Second},
		log:       log,
	}
}

type createBatchRequest struct {
	Submissions []BatchSubmission `json:"submissions"`
}

type createBatchResponse struct {
	Tokens []string `json:"tokens"`
}

type batchStatusResponse struct {
	Submissions []CaseStatus `json:"submissions"`
}

func (c *HTTPClient) CreateBatch(ctx context.Context, subs []BatchSubmission) ([]string, error) {
	body, err := json.Marshal(createBatchRequest{Submissions: subs})
	if err != nil {
		return nil, fmt.Errorf("marshaling batch request: %w", err)
	}

	endpoint := c.baseURL + "/submissions/batch?base64_encoded=false"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp createBatchResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Tokens) != len(subs) {
		return nil, fmt.Errorf("judge returned %d tokens for %d submissions: %w",
			len(resp.Tokens), len(subs), common.ErrInternalServer)
	}
	return resp.Tokens, nil
}

func (c *HTTPClient) BatchStatus(ctx context.Context, tokens []string) ([]CaseStatus, error) {
	q := url.Values{}
	q.Set("tokens", strings.Join(tokens, ","))
	q.Set("fields", "token,status,stdout,stderr,time,memory")
	q.Set("base64_encoded", "false")

	endpoint := c.baseURL + "/submissions/batch?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building status request: %w", err)
	}

	var resp batchStatusResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Submissions, nil
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	if c.authToken != "" {
		req.Header.Set("X-Auth-Token", c.authToken)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("calling judge: %v: %w", err, common.ErrUpstreamUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading judge response: %v: %w", err, common.ErrUpstreamUnavailable)
	}

	if resp.StatusCode >= 500 {
		c.log.Warn("judge returned server error",
			zap.Int("status", resp.StatusCode), zap.String("url", req.URL.Path))
		return fmt.Errorf("judge responded %d: %w", resp.StatusCode, common.ErrUpstreamUnavailable)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("judge responded %d: %s: %w", resp.StatusCode,
			strings.TrimSpace(string(body)), common.ErrInternalServer)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding judge response: %v: %w", err, common.ErrInternalServer)
	}
	return nil
}
