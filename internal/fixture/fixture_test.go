package fixture

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServerVariants(t *testing.T) {
	srv := httptest.NewServer(NewServer("#resume-preview", "data-render-complete").Handler())
	defer srv.Close()

	code, body := get(t, URL(srv.URL, "task-1", Ready))
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"resume-preview"`)
	assert.Contains(t, body, `"data-render-complete"`)
	assert.Contains(t, body, "setAttribute")

	_, body = get(t, URL(srv.URL, "task-2", NoReadyFlag))
	assert.Contains(t, body, `"resume-preview"`)
	assert.NotContains(t, body, "setAttribute")

	_, body = get(t, URL(srv.URL, "task-3", NoMarker))
	assert.NotContains(t, body, "sheet.id")

	_, body = get(t, URL(srv.URL, "task-4", LiveSocket))
	assert.Contains(t, body, "new WebSocket")

	code, _ = get(t, srv.URL+"/missing")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestTaskIDIsEscaped(t *testing.T) {
	srv := httptest.NewServer(NewServer("resume-preview", "data-render-complete").Handler())
	defer srv.Close()

	_, body := get(t, srv.URL+"/print/%3Cscript%3E")
	assert.NotContains(t, body, "<title>Resume <script>")
}

func TestMinimalPDF(t *testing.T) {
	doc := MinimalPDFWithText(2, "task-9")
	assert.True(t, len(doc) > 0)
	assert.Equal(t, "%PDF-", string(doc[:5]))
	assert.Contains(t, string(doc), "task-9")
	assert.Contains(t, string(doc), "/Count 2")
}
