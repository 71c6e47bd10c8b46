package e2e_test

import (
	"context"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pypindex/pypindex"
	"github.com/pypindex/pypindex/filesystem"
	pypindexhttp "github.com/pypindex/pypindex/http"
)

// testIndex is a fully wired index server over a temp directory: filesystem
// storage, self-signed download URLs and the verified download route.
type testIndex struct {
	server    *httptest.Server
	store     *filesystem.Store
	service   *pypindex.Service
	reindexer *pypindex.Reindexer
	dir       string
}

func startIndex(t *testing.T) *testIndex {
	t.Helper()

	dir := t.TempDir()
	root, err := os.OpenRoot(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })

	// The server URL is only known after the listener starts, so route
	// requests through a placeholder handler that is swapped once the
	// store is wired up.
	var handler http.Handler
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)

	signer := pypindex.NewSigner("us-east-1", "s3", "AKIATEST", "testsecret")
	store := filesystem.NewStore(root, signer, server.URL)

	service, err := pypindex.NewService(store, pypindex.ServiceConfig{
		PresignTTL: 900 * time.Second,
	})
	require.NoError(t, err)

	verifier := pypindex.NewSignatureVerifier("us-east-1", "s3", func(accessKey string) (string, bool) {
		if accessKey == "AKIATEST" {
			return "testsecret", true
		}
		return "", false
	})

	handler = pypindexhttp.NewHandler(&pypindexhttp.HandlerConfig{
		BasePath:         "/simple",
		Downloads:        store,
		DownloadVerifier: verifier,
	}, service).Router()

	return &testIndex{
		server:    server,
		store:     store,
		service:   service,
		reindexer: pypindex.NewReindexer(service),
		dir:       dir,
	}
}

func (ti *testIndex) publish(t *testing.T, key string, content []byte) {
	t.Helper()
	full := filepath.Join(ti.dir, filepath.FromSlash(key))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, content, 0o644))
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

var hrefPattern = regexp.MustCompile(`<a href="([^"]+)">`)

// TestE2E_InstallFlow walks the index the way an installer does: root page,
// package page, then the presigned download link.
func TestE2E_InstallFlow(t *testing.T) {
	ti := startIndex(t)
	ti.publish(t, "demo/demo-1.0.tar.gz", []byte("demo distribution"))
	ti.publish(t, "demo/demo-2.0.tar.gz", []byte("newer demo distribution"))
	ti.publish(t, "other/other-1.0.tar.gz", []byte("other"))

	status, rootPage := get(t, ti.server.URL+"/simple/")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, rootPage, `<a href="demo/">demo</a>`)
	assert.Contains(t, rootPage, `<a href="other/">other</a>`)

	status, packagePage := get(t, ti.server.URL+"/simple/demo/")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, packagePage, ">demo-1.0.tar.gz</a>")

	hrefs := hrefPattern.FindAllStringSubmatch(packagePage, -1)
	require.Len(t, hrefs, 2)

	// Anchor hrefs are HTML-escaped in the page.
	status, content := get(t, html.UnescapeString(hrefs[0][1]))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "demo distribution", content)

	// The same key without a signature must be rejected.
	status, _ = get(t, ti.server.URL+"/files/demo/demo-1.0.tar.gz")
	assert.Equal(t, http.StatusForbidden, status)
}

// TestE2E_RootRedirect checks the convenience redirect from the bare host.
func TestE2E_RootRedirect(t *testing.T) {
	ti := startIndex(t)

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Get(ti.server.URL + "/")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
	assert.Equal(t, "/simple/", resp.Header.Get("Location"))
}

// TestE2E_ReindexVisibility publishes a new package, rebuilds the cached
// page through the reindexer and checks it shows up on the root index.
func TestE2E_ReindexVisibility(t *testing.T) {
	ti := startIndex(t)
	ti.publish(t, "stable/stable-1.0.tar.gz", []byte("s"))

	require.NoError(t, ti.service.Reindex(context.Background()))

	status, rootPage := get(t, ti.server.URL+"/simple/")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, rootPage, `<a href="stable/">stable</a>`)
	assert.NotContains(t, rootPage, "fresh")

	ti.publish(t, "fresh/fresh-1.0.tar.gz", []byte("f"))

	// Cached page is served as-is until the reindexer runs.
	_, cached := get(t, ti.server.URL+"/simple/")
	assert.NotContains(t, cached, "fresh")

	// But the new package's own page already works.
	status, _ = get(t, ti.server.URL+"/simple/fresh/")
	assert.Equal(t, http.StatusOK, status)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- ti.reindexer.Run(ctx) }()
	ti.reindexer.Notify()

	require.Eventually(t, func() bool {
		resp, err := http.Get(ti.server.URL + "/simple/")
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		page, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}
		return regexp.MustCompile(`<a href="fresh/">fresh</a>`).Match(page)
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

// TestE2E_UnknownPackage covers the 404 path end to end.
func TestE2E_UnknownPackage(t *testing.T) {
	ti := startIndex(t)
	ti.publish(t, "demo/demo-1.0.tar.gz", []byte("d"))

	status, body := get(t, ti.server.URL+"/simple/nonexistent/")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "404 Not Found")
}
