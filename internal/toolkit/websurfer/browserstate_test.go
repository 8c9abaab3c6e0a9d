package websurfer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisitExtractsVisibleText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Example</title><style>.x{}</style></head>
<body><script>evil()</script><p>hello world</p></body></html>`))
	}))
	defer srv.Close()

	b := NewBrowserState(t.TempDir())
	out, err := b.Visit(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "hello world")
	assert.NotContains(t, out, "evil()")
	assert.Equal(t, "Example", b.pageTitle)
}

func TestPagingAcrossViewports(t *testing.T) {
	big := make([]byte, viewportSize*3)
	for i := range big {
		big[i] = 'a'
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>" + string(big) + "</body></html>"))
	}))
	defer srv.Close()

	b := NewBrowserState(t.TempDir())
	_, err := b.Visit(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, 0, b.viewportOffset)
	b.PageDown()
	assert.Equal(t, viewportSize, b.viewportOffset)
	b.PageUp()
	assert.Equal(t, 0, b.viewportOffset)
}

func TestFindWrapsAround(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>needle first, then needle again</body></html>"))
	}))
	defer srv.Close()

	b := NewBrowserState(t.TempDir())
	_, err := b.Visit(context.Background(), srv.URL)
	require.NoError(t, err)

	first := b.Find("needle")
	assert.Contains(t, first, "needle")
	second := b.Find("needle")
	assert.Contains(t, second, "needle")
	third := b.Find("needle")
	assert.Contains(t, third, "needle first")
	assert.Equal(t, 0, b.viewportOffset)
}

func TestDownloadWritesFileToDownloadsDir(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("binary-content"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	b := NewBrowserState(dir)
	path, err := b.Download(context.Background(), srv.URL+"/file.bin")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "file.bin"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "binary-content", string(data))
}
