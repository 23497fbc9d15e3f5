package progress

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
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/2beens/formcoach/internal/telemetry/tracing"
	"github.com/2beens/formcoach/pkg"
)

const DefaultStoreTimeout = 10 * time.Second

// HTTPStore talks to the progress service over its REST api.
type HTTPStore struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

func NewHTTPStore(baseURL string, httpClient *http.Client) *HTTPStore {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   DefaultStoreTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &HTTPStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// WithAuthToken makes the store send token as a bearer token.
func (s *HTTPStore) WithAuthToken(token string) *HTTPStore {
	s.authToken = token
	return s
}

func (s *HTTPStore) RecordSession(ctx context.Context, summary Summary) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "httpstore.progress.recordsession")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var resp recordSessionResponse
	if err := s.do(ctx, http.MethodPost, s.userPath(summary.UserID, "sessions"), summary, http.StatusCreated, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

func (s *HTTPStore) ListSummaries(ctx context.Context, userID string, limit int) (_ []Summary, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "httpstore.progress.listsummaries")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	reqURL := s.userPath(userID, "sessions")
	if limit > 0 {
		reqURL += "?limit=" + strconv.Itoa(limit)
	}
	var summaries []Summary
	if err := s.do(ctx, http.MethodGet, reqURL, nil, http.StatusOK, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (s *HTTPStore) GetGoals(ctx context.Context, userID string) (_ *Goals, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "httpstore.progress.getgoals")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var goals Goals
	if err := s.do(ctx, http.MethodGet, s.userPath(userID, "goals"), nil, http.StatusOK, &goals); err != nil {
		return nil, err
	}
	return &goals, nil
}

func (s *HTTPStore) SetGoals(ctx context.Context, goals Goals) (_ *Goals, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "httpstore.progress.setgoals")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var saved Goals
	if err := s.do(ctx, http.MethodPut, s.userPath(goals.UserID, "goals"), goals, http.StatusOK, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

func (s *HTTPStore) GetTotals(ctx context.Context, userID string) (_ *Totals, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "httpstore.progress.gettotals")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var totals Totals
	if err := s.do(ctx, http.MethodGet, s.userPath(userID, "totals"), nil, http.StatusOK, &totals); err != nil {
		return nil, err
	}
	return &totals, nil
}

func (s *HTTPStore) UpdateLive(ctx context.Context, c LiveCounters) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "httpstore.progress.updatelive")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return s.do(ctx, http.MethodPut, s.userPath(c.UserID, "live"), c, http.StatusNoContent, nil)
}

func (s *HTTPStore) GetLive(ctx context.Context, userID string) (_ *LiveCounters, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "httpstore.progress.getlive")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var c LiveCounters
	if err := s.do(ctx, http.MethodGet, s.userPath(userID, "live"), nil, http.StatusOK, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *HTTPStore) ClearLive(ctx context.Context, userID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "httpstore.progress.clearlive")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return s.do(ctx, http.MethodDelete, s.userPath(userID, "live"), nil, http.StatusNoContent, nil)
}

func (s *HTTPStore) userPath(userID, resource string) string {
	return fmt.Sprintf("%s/progress/%s/%s", s.baseURL, url.PathEscape(userID), resource)
}

func (s *HTTPStore) do(ctx context.Context, method, reqURL string, body any, wantStatus int, out any) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", pkg.ContentType.JSON)
	}
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, reqURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != wantStatus {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: unexpected status %d: %s", method, reqURL, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
