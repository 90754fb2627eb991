package gitlab

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/puterize/glabu/internal/errors"
	"github.com/puterize/glabu/internal/registry"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, "secret-token", WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "glabu")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	return path
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("gitlab.example.com/", "")
	require.NoError(t, err)
	assert.Equal(t, "https://gitlab.example.com", c.Host())

	_, err = NewClient("", "")
	assert.ErrorIs(t, err, oerrors.ErrValidation)
}

func TestUploadPackage(t *testing.T) {
	var gotPath, gotToken string
	var gotBody []byte
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		gotPath = r.URL.EscapedPath()
		gotToken = r.Header.Get(TokenHeader)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"message":"201 Created"}`))
	})

	d := registry.UploadDescriptor{
		Project:        "puterize/prebuilt",
		PackageName:    "glabu",
		PackageVersion: "a1b2c3d",
		FileName:       "glabu-arm64",
		FilePath:       writeArtifact(t, "binary-bytes"),
	}
	res, err := c.UploadPackage(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t, "/api/v4/projects/puterize%2Fprebuilt/packages/generic/glabu/a1b2c3d/glabu-arm64", gotPath)
	assert.Equal(t, "secret-token", gotToken)
	assert.Equal(t, "binary-bytes", string(gotBody))

	sum := sha256.Sum256([]byte("binary-bytes"))
	assert.Equal(t, hex.EncodeToString(sum[:]), res.SHA256)
	assert.Equal(t, int64(len("binary-bytes")), res.Size)
	assert.Equal(t, d, res.Descriptor)
	assert.Contains(t, res.URL, "glabu-arm64")
}

func TestUploadPackage_StatusMapping(t *testing.T) {
	tests := []struct {
		status   int
		sentinel error
	}{
		{http.StatusUnauthorized, oerrors.ErrPermission},
		{http.StatusForbidden, oerrors.ErrPermission},
		{http.StatusConflict, oerrors.ErrConflict},
		{http.StatusNotFound, oerrors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"message":"nope"}`))
			})
			_, err := c.UploadPackage(context.Background(), registry.UploadDescriptor{
				Project: "1", PackageName: "glabu", PackageVersion: "abc1234",
				FileName: "glabu-amd64", FilePath: writeArtifact(t, "x"),
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.True(t, IsStatus(err, tt.status))
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestUploadPackage_ServerErrorIsUncategorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	_, err := c.UploadPackage(context.Background(), registry.UploadDescriptor{
		Project: "1", PackageName: "glabu", PackageVersion: "abc1234",
		FileName: "glabu-amd64", FilePath: writeArtifact(t, "x"),
	})
	require.Error(t, err)
	for _, s := range []error{oerrors.ErrPermission, oerrors.ErrConflict, oerrors.ErrConnectivity} {
		assert.False(t, errors.Is(err, s))
	}
}

func TestUploadPackage_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	host := srv.URL
	srv.Close()

	c, err := NewClient(host, "t")
	require.NoError(t, err)
	_, err = c.UploadPackage(context.Background(), registry.UploadDescriptor{
		Project: "1", PackageName: "glabu", PackageVersion: "abc1234",
		FileName: "glabu-amd64", FilePath: writeArtifact(t, "x"),
	})
	assert.ErrorIs(t, err, oerrors.ErrConnectivity)
}

func TestUploadPackage_InvalidDescriptor(t *testing.T) {
	c := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected")
	})
	_, err := c.UploadPackage(context.Background(), registry.UploadDescriptor{Project: "1"})
	assert.ErrorIs(t, err, oerrors.ErrValidation)
}

// pagedPackages serves packages newest first, honouring page and per_page
// the way GitLab does, and records every query it saw.
func pagedPackages(t *testing.T, pkgs []Package, queries *[]url.Values) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/42/packages", r.URL.Path)
		q := r.URL.Query()
		*queries = append(*queries, q)

		perPage, _ := strconv.Atoi(q.Get("per_page"))
		if perPage <= 0 {
			perPage = 20
		}
		page, _ := strconv.Atoi(q.Get("page"))
		if page <= 0 {
			page = 1
		}
		from := min((page-1)*perPage, len(pkgs))
		to := min(from+perPage, len(pkgs))
		if to < len(pkgs) {
			w.Header().Set("X-Next-Page", strconv.Itoa(page+1))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(pkgs[from:to])
	}
}

func TestLatestPackage_SkipsNewerSimilarNames(t *testing.T) {
	var queries []url.Values
	c := newTestClient(t, pagedPackages(t, []Package{
		{ID: 9, Name: "glabu-extras", Version: "ffff000"},
		{ID: 8, Name: "glabu", Version: "a1b2c3d"},
		{ID: 7, Name: "glabu", Version: "0000aaa"},
	}, &queries))

	pkg, err := c.LatestPackage(context.Background(), "42", "glabu")
	require.NoError(t, err)
	assert.Equal(t, int64(8), pkg.ID)
	assert.Equal(t, "a1b2c3d", pkg.Version)

	require.NotEmpty(t, queries)
	q := queries[0]
	assert.Equal(t, "glabu", q.Get("package_name"))
	assert.Equal(t, "generic", q.Get("package_type"))
	assert.Equal(t, "created_at", q.Get("order_by"))
	assert.Equal(t, "desc", q.Get("sort"))
}

func TestListPackages_WalksEveryPage(t *testing.T) {
	var queries []url.Values
	c := newTestClient(t, pagedPackages(t, []Package{
		{ID: 3, Name: "glabu-extras", Version: "c"},
		{ID: 2, Name: "glabu", Version: "b"},
		{ID: 1, Name: "glabu", Version: "a"},
	}, &queries))

	pkgs, err := c.ListPackages(context.Background(), "42", ListPackagesOptions{Name: "glabu", PerPage: 1})
	require.NoError(t, err)
	require.Len(t, pkgs, 2)
	assert.Equal(t, "b", pkgs[0].Version)
	assert.Equal(t, "a", pkgs[1].Version)
	assert.Len(t, queries, 3)

	pkg, err := c.FindPackage(context.Background(), "42", "glabu", "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), pkg.ID)

	_, err = c.FindPackage(context.Background(), "42", "glabu", "c")
	assert.ErrorIs(t, err, oerrors.ErrNotFound)
}

func TestLatestPackage_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("[]"))
	})
	_, err := c.LatestPackage(context.Background(), "42", "glabu")
	assert.ErrorIs(t, err, oerrors.ErrNotFound)
}

func TestFilesOf(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/group%2Fproj/packages/8/package_files", r.URL.EscapedPath())
		_, _ = w.Write([]byte(`[{"id":1,"package_id":8,"file_name":"glabu-amd64","size":3,"file_sha256":"abc"}]`))
	})

	files, err := c.FilesOf(context.Background(), "group/proj", &Package{ID: 8, Name: "glabu", Version: "a1b2c3d"})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "glabu-amd64", files[0].FileName)
	assert.Equal(t, "glabu", files[0].Name)
	assert.Equal(t, "a1b2c3d", files[0].Version)
	assert.Equal(t, "abc", files[0].FileSHA256)
}

func TestDownloadToDir(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/42/packages/generic/glabu/a1b2c3d/glabu-amd64", r.URL.Path)
		_, _ = w.Write([]byte("payload"))
	})

	dir := t.TempDir()
	path, err := c.DownloadToDir(context.Background(), "42",
		PackageFile{FileName: "glabu-amd64", Name: "glabu", Version: "a1b2c3d"}, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "glabu-amd64"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestDownloadToDir_FailureLeavesNothing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	dir := t.TempDir()
	_, err := c.DownloadToDir(context.Background(), "42",
		PackageFile{FileName: "glabu-amd64", Name: "glabu", Version: "a1b2c3d"}, dir)
	assert.ErrorIs(t, err, oerrors.ErrNotFound)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDownloadFile_Writer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("abc"))
	})
	var buf bytes.Buffer
	n, err := c.DownloadFile(context.Background(), "42", "glabu", "v", "f", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, "abc", buf.String())
}

func TestFilters(t *testing.T) {
	files := []PackageFile{{FileName: "glabu-amd64"}, {FileName: "glabu-arm64"}, {FileName: "README"}}

	byName, err := NewFilter("", "README")
	require.NoError(t, err)
	assert.Len(t, Filter(files, byName), 1)

	byPattern, err := NewFilter(`^glabu-`, "README")
	require.NoError(t, err)
	got := Filter(files, byPattern)
	require.Len(t, got, 2)
	assert.Equal(t, "glabu-amd64", got[0].FileName)

	_, err = NewFilter("", "")
	assert.ErrorIs(t, err, oerrors.ErrValidation)

	_, err = NewFilter("(", "")
	assert.ErrorIs(t, err, oerrors.ErrValidation)
}
