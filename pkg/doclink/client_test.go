package doclink

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupClient_RequestWireFormat(t *testing.T) {
	var captured []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"Results": []}`)
	}))
	defer server.Close()

	client := NewLookupClient(server.URL, NopLogger())
	_, _, err := client.Resolve(context.Background(), []string{"TSRC-Abc-123456", "tsrc-abc-123456", "CMS-X-000001"})
	require.NoError(t, err)

	// The property name is case-sensitive on the wire and identifier case
	// is preserved; duplicates are deduplicated case-insensitively.
	var body map[string][]string
	require.NoError(t, json.Unmarshal(captured, &body))
	require.Contains(t, body, "Lookup_ID")
	assert.Equal(t, []string{"TSRC-Abc-123456", "CMS-X-000001"}, body["Lookup_ID"])
}

func TestLookupClient_ResponseParsingAndClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"Results": [
			{"Lookup_ID": "TSRC-A-111111", "Document_ID": "DOC-1", "Content_ID": "111111", "Title": "Alpha", "Status": "Active"},
			{"lookup_id": "TSRC-B-222222", "document_id": "DOC-2", "content_id": "222222", "title": "Beta", "status": "expired"},
			{"LOOKUPID": "TSRC-C-333333", "DOCUMENTID": "DOC-3", "CONTENTID": "333333", "TITLE": "Gamma", "STATUS": "Active"}
		]}`)
	}))
	defer server.Close()

	client := NewLookupClient(server.URL, NopLogger())
	result, dict, err := client.Resolve(context.Background(), []string{"DOC-1", "doc-2", "DOC-3", "DOC-404"})
	require.NoError(t, err)

	assert.Len(t, result.Found, 2)
	assert.Len(t, result.Expired, 1)
	assert.Equal(t, []string{"DOC-404"}, result.Missing)

	// Dual-key dictionary: both document id and content id resolve, both
	// case-insensitively.
	byDoc, ok := dict.Lookup("doc-1")
	require.True(t, ok)
	byContent, ok2 := dict.Lookup("111111")
	require.True(t, ok2)
	assert.Same(t, byDoc, byContent)
	assert.Equal(t, "Alpha", byDoc.Title)

	expired, ok := dict.Lookup("DOC-2")
	require.True(t, ok)
	assert.True(t, expired.IsExpired())
}

func TestLookupClient_FirstWriterWinsPerKey(t *testing.T) {
	dict := NewRecordDictionary()
	first := &DocumentRecord{DocumentID: "SHARED", ContentID: "111111", Title: "first"}
	second := &DocumentRecord{DocumentID: "shared", ContentID: "222222", Title: "second"}
	dict.Add(first)
	dict.Add(second)

	record, ok := dict.Lookup("SHARED")
	if !ok || record.Title != "first" {
		t.Fatalf("expected first writer to win, got %+v", record)
	}
	// The second record is still reachable through its unshared key.
	record, ok = dict.Lookup("222222")
	if !ok || record.Title != "second" {
		t.Fatalf("expected second record under its content id, got %+v", record)
	}
}

func TestLookupClient_TransportFailureFallsBackToSimulation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewLookupClient(server.URL, NopLogger())
	result, dict, err := client.Resolve(context.Background(), []string{"TSRC-A-123456", "TSRC-EXPIRED-111111", "TSRC-MISSING-000000"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Error)

	assert.Len(t, result.Found, 1)
	assert.Len(t, result.Expired, 1)
	assert.Equal(t, []string{"TSRC-MISSING-000000"}, result.Missing)

	record, ok := dict.Lookup("TSRC-A-123456")
	require.True(t, ok)
	assert.Equal(t, "123456", record.ContentID)
	assert.Equal(t, "Active", record.Status)
}

func TestLookupClient_SimulationModeWithoutEndpoint(t *testing.T) {
	client := NewLookupClient("", NopLogger())
	result, _, err := client.Resolve(context.Background(), []string{"TSRC-EXPIRED-999999"})
	require.NoError(t, err)
	assert.Empty(t, result.Error)
	require.Len(t, result.Expired, 1)
	assert.Equal(t, "Expired", result.Expired[0].Status)
}

func TestLookupClient_EmptyInput(t *testing.T) {
	client := NewLookupClient("", NopLogger())
	result, dict, err := client.Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Found)
	assert.Zero(t, dict.Len())
}

func TestCacheKey_CanonicalForm(t *testing.T) {
	a := CacheKey([]string{"B-2", "a-1"})
	b := CacheKey([]string{"A-1", "b-2", "B-2"})
	if a != b {
		t.Errorf("expected order- and case-insensitive keys to match: %q vs %q", a, b)
	}
}
