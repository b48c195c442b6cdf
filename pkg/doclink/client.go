package doclink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// LookupClient batches canonical lookup identifiers, calls the remote
// resolver, and builds the dual-key record dictionary. One client is shared
// across every concurrently-processed document; it owns its HTTP connection
// pool and keeps no per-document state.
type LookupClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *Logger
}

// lookupRequest is the wire format of a resolver call. The property name is
// case-sensitive on the wire; identifier case is preserved exactly.
type lookupRequest struct {
	LookupID []string `json:"Lookup_ID"`
}

// NewLookupClient creates a client for the given resolver endpoint. An
// empty baseURL puts the client permanently in simulation mode, which is
// also the fallback on any transport or HTTP failure.
func NewLookupClient(baseURL string, logger *Logger) *LookupClient {
	if logger == nil {
		logger = NopLogger()
	}
	if baseURL == "" {
		logger.Warn("no resolver endpoint configured, lookup runs in simulation mode")
	}
	return &LookupClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(10), 20),
		logger:     logger,
	}
}

// SetHTTPClient overrides the underlying HTTP client (for testing).
func (c *LookupClient) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// Resolve looks up a set of canonical identifiers and returns the
// classification result plus the dual-key dictionary. Identifiers are
// deduplicated case-insensitively; the first spelling seen is the one sent
// on the wire. Transport failures never surface as errors: the client falls
// back to deterministic simulation so a flaky resolver degrades to
// missing/suffix outcomes rather than failing documents.
func (c *LookupClient) Resolve(ctx context.Context, lookupIDs []string) (*ApiProcessingResult, *RecordDictionary, error) {
	ids := dedupeIDs(lookupIDs)
	if len(ids) == 0 {
		return &ApiProcessingResult{}, NewRecordDictionary(), nil
	}

	var records []*DocumentRecord
	var callErr error
	if c.baseURL == "" {
		records = simulateLookup(ids)
	} else {
		remote, err := c.call(ctx, ids)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			c.logger.Warn("resolver call failed, falling back to simulation: %v", err)
			callErr = err
			records = simulateLookup(ids)
		} else {
			records = remote
		}
	}

	dict := NewRecordDictionary()
	for _, record := range records {
		dict.Add(record)
	}

	result := classify(ids, dict)
	if callErr != nil {
		result.Error = callErr.Error()
	}
	return result, dict, nil
}

func (c *LookupClient) call(ctx context.Context, ids []string) ([]*DocumentRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(lookupRequest{LookupID: ids})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, &ResolverError{Endpoint: c.baseURL, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ResolverError{Endpoint: c.baseURL, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &ResolverError{Endpoint: c.baseURL, Cause: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ResolverError{Endpoint: c.baseURL, Cause: err}
	}

	return parseResolverResponse(data)
}

// parseResolverResponse decodes a resolver response body. Property lookup
// is case-insensitive with a fixed set of variants tried in order, because
// the service has shipped several casings over its lifetime.
func parseResolverResponse(data []byte) ([]*DocumentRecord, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, &ResolverError{Cause: fmt.Errorf("malformed response: %w", err)}
	}

	rawResults, ok := rawField(envelope, "Results")
	if !ok {
		return nil, &ResolverError{Cause: fmt.Errorf("response has no Results array")}
	}

	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(rawResults, &entries); err != nil {
		return nil, &ResolverError{Cause: fmt.Errorf("malformed Results array: %w", err)}
	}

	records := make([]*DocumentRecord, 0, len(entries))
	for _, entry := range entries {
		records = append(records, &DocumentRecord{
			LookupID:   stringField(entry, "Lookup_ID"),
			DocumentID: stringField(entry, "Document_ID"),
			ContentID:  stringField(entry, "Content_ID"),
			Title:      stringField(entry, "Title"),
			Status:     stringField(entry, "Status"),
		})
	}
	return records, nil
}

// rawField finds a JSON property by trying documented name variants in
// order: exact, lower, upper, lower-first-letter, no-underscore-lower,
// no-underscore-upper.
func rawField(obj map[string]json.RawMessage, name string) (json.RawMessage, bool) {
	noUnderscore := strings.ReplaceAll(name, "_", "")
	variants := []string{
		name,
		strings.ToLower(name),
		strings.ToUpper(name),
		lowerFirst(name),
		strings.ToLower(noUnderscore),
		strings.ToUpper(noUnderscore),
	}
	for _, variant := range variants {
		if raw, ok := obj[variant]; ok {
			return raw, true
		}
	}
	return nil, false
}

func stringField(obj map[string]json.RawMessage, name string) string {
	raw, ok := rawField(obj, name)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// classify buckets each input identifier: expired when its matched record's
// status is Expired, found when matched otherwise, missing when no key
// matches.
func classify(ids []string, dict *RecordDictionary) *ApiProcessingResult {
	result := &ApiProcessingResult{}
	for _, id := range ids {
		record, ok := dict.Lookup(id)
		if !ok {
			result.Missing = append(result.Missing, id)
			continue
		}
		if record.IsExpired() {
			result.Expired = append(result.Expired, record)
		} else {
			result.Found = append(result.Found, record)
		}
	}
	return result
}

// dedupeIDs removes duplicate identifiers case-insensitively, keeping the
// first spelling of each and dropping empties. The output order is the
// input order, which keeps request bodies deterministic for tests.
func dedupeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		norm := strings.ToLower(id)
		if seen[norm] {
			continue
		}
		seen[norm] = true
		out = append(out, id)
	}
	return out
}

// CacheKey returns a canonical cache key for a set of identifiers: the
// deduplicated ids, lowercased and sorted, joined with a separator no
// identifier contains.
func CacheKey(ids []string) string {
	deduped := dedupeIDs(ids)
	norm := make([]string, len(deduped))
	for i, id := range deduped {
		norm[i] = strings.ToLower(id)
	}
	sort.Strings(norm)
	return strings.Join(norm, "\x1f")
}

// simulateLookup fabricates deterministic resolver records for test builds
// and for runs without a configured endpoint. Outcomes are seeded from
// literal substrings of the identifier: "MISSING" or "NOTFOUND" yields no
// record, "EXPIRED" yields an expired one, everything else is active. The
// content id is the identifier's trailing digit run when present.
func simulateLookup(ids []string) []*DocumentRecord {
	var records []*DocumentRecord
	for _, id := range ids {
		upper := strings.ToUpper(id)
		if strings.Contains(upper, "MISSING") || strings.Contains(upper, "NOTFOUND") {
			continue
		}

		status := "Active"
		if strings.Contains(upper, "EXPIRED") {
			status = "Expired"
		}

		records = append(records, &DocumentRecord{
			LookupID:   id,
			DocumentID: id,
			ContentID:  trailingDigits(id),
			Title:      "Simulated " + id,
			Status:     status,
		})
	}
	return records
}

func trailingDigits(s string) string {
	end := len(s)
	start := end
	for start > 0 && s[start-1] >= '0' && s[start-1] <= '9' {
		start--
	}
	return s[start:end]
}
