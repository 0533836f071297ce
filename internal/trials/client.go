// Package trials is a client for the clinicaltrials.gov v2 API
package trials

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/user/trialchat/internal/config"
	"github.com/user/trialchat/internal/errors"
	"github.com/user/trialchat/internal/logging"
	"github.com/user/trialchat/internal/metrics"
	"github.com/user/trialchat/internal/retry"
)

// DefaultPageSize is used when a search asks for no page size
const DefaultPageSize = 10

// Endpoint labels
const (
	EndpointSearch = "search"
	EndpointStudy  = "study"
)

// rawJSON embeds an upstream sub-document without re-encoding it
type rawJSON = json.RawMessage

// SearchSummary is the compact projection of a search response
type SearchSummary struct {
	QueryTerm       string   `json:"Query Term"`
	PageSize        int      `json:"Page Size"`
	NumberOfResults int      `json:"Number of Results"`
	StudyNames      []string `json:"Study Name"`
	NCTIDs          []string `json:"NCT_ID"`
}

// Client talks to the studies endpoints
type Client struct {
	baseURL string
	http    *retry.Client
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewClient creates a trials client. logger and m may be nil.
func NewClient(cfg config.TrialsConfig, logger *logging.Logger, m *metrics.Metrics) *Client {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = config.DefaultTrialsBaseURL
	}

	perAttempt, total := cfg.Retry.GetWaits()
	rc := retry.NewClient(cfg.GetTimeout(), &retry.Config{
		MaxAttempts:       cfg.Retry.MaxAttempts,
		Multiplier:        cfg.Retry.Multiplier,
		MaxWaitPerAttempt: perAttempt,
		MaxTotalWait:      total,
	})

	return &Client{
		baseURL: baseURL,
		http:    rc,
		logger:  logger.Named("trials"),
		metrics: m,
	}
}

// BaseURL returns the API root used by the client
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Search runs an Essie query against /studies. The query is passed through
// verbatim. A non-200 answer is returned as *errors.UpstreamError.
func (c *Client) Search(ctx context.Context, query string, pageSize int) (*SearchSummary, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("query.parser", "advanced")
	params.Set("query.term", query)
	params.Set("pageSize", strconv.Itoa(pageSize))

	body, err := c.get(ctx, EndpointSearch, c.baseURL+"/studies?"+params.Encode())
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid search response")
	}
	studies := gjson.GetBytes(body, "studies")
	if !studies.Exists() {
		return nil, fmt.Errorf("search response has no studies")
	}

	summary := &SearchSummary{
		QueryTerm:  query,
		PageSize:   pageSize,
		StudyNames: []string{},
		NCTIDs:     []string{},
	}
	studies.ForEach(func(_, study gjson.Result) bool {
		ident := study.Get("protocolSection.identificationModule")
		summary.StudyNames = append(summary.StudyNames, ident.Get("briefTitle").String())
		summary.NCTIDs = append(summary.NCTIDs, ident.Get("nctId").String())
		return true
	})
	summary.NumberOfResults = len(summary.NCTIDs)

	c.logger.Debug("search completed",
		logging.String("query", query),
		logging.Int("results", summary.NumberOfResults),
	)
	return summary, nil
}

// GetStudy fetches the raw record of one study
func (c *Client) GetStudy(ctx context.Context, nctID string) ([]byte, error) {
	return c.get(ctx, EndpointStudy, c.baseURL+"/studies/"+url.PathEscape(nctID))
}

func (c *Client) get(ctx context.Context, endpoint, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.NewUpstreamError(endpoint, 0, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamRequest(endpoint, 0, time.Since(start))
		c.logger.Warn("trials request failed",
			logging.String("endpoint", endpoint),
			logging.Error(err),
		)
		return nil, errors.NewUpstreamError(endpoint, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, readErr := io.ReadAll(resp.Body)
	c.metrics.RecordUpstreamRequest(endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		c.logger.Info("trials request returned non-200",
			logging.String("endpoint", endpoint),
			logging.Int("status", resp.StatusCode),
		)
		return nil, errors.NewUpstreamError(endpoint, resp.StatusCode, nil)
	}
	if readErr != nil {
		return nil, errors.NewUpstreamError(endpoint, 0, readErr)
	}
	return body, nil
}

// FailureMessage renders an upstream failure the way it is reported back
// to the model
func FailureMessage(err error) string {
	if ue, ok := err.(*errors.UpstreamError); ok {
		if ue.StatusCode != 0 {
			return fmt.Sprintf("Request failed with status code %d", ue.StatusCode)
		}
		if ue.Cause != nil {
			return fmt.Sprintf("Request failed: %v", ue.Cause)
		}
	}
	return fmt.Sprintf("Request failed: %v", err)
}
