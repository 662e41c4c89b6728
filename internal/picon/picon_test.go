// SPDX-License-Identifier: MIT

package picon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/avfs/avfs/vfs/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseName(t *testing.T) {
	ref := "4097:0:1:1A:0:0:0:0:0:0"
	assert.Equal(t, "4097_0_1_1A_0_0_0_0_0_0", BaseName(ModeSRP, ref, "x"))
	assert.Equal(t, "AC_DC Live", BaseName(ModeName, ref, "AC/DC Live"))
	assert.Equal(t, "tomandjerry", BaseName(ModeSNP, ref, "Tom & Jerry"))
	assert.Equal(t, "cineplus", BaseName(ModeSNP, ref, "Ciné+"))
	assert.Equal(t, "starwars", BaseName(ModeSNP, ref, "*Wars"))
}

func TestBaseName_SNPDistinctForDistinctNames(t *testing.T) {
	seen := map[string]string{}
	for _, name := range []string{"Pluto TV Action", "Pluto TV Drama", "Pluto TV Kids", "Pluto TV Sci-Fi", "Comedy+"} {
		got := BaseName(ModeSNP, "", name)
		prev, dup := seen[got]
		assert.False(t, dup, "%q and %q collide", prev, name)
		seen[got] = name
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeSRP, m)
	_, err = ParseMode("png")
	require.Error(t, err)
}

func TestLogoURL(t *testing.T) {
	assert.Equal(t, "https://images.example/logo.png?w=220&h=132", LogoURL("https://images.example/logo.png"))
}

func newFetcher(t *testing.T) (*Fetcher, *memfs.MemFS) {
	t.Helper()
	vfs := memfs.New()
	return NewFetcher(Options{FS: vfs}), vfs
}

func TestFetch_Downloads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "220", r.URL.Query().Get("w"))
		_, _ = w.Write([]byte("logo-bytes"))
	}))
	defer srv.Close()

	f, vfs := newFetcher(t)
	dest := "/picon/a.png"
	require.True(t, f.Fetch(context.Background(), LogoURL(srv.URL+"/logo.png"), dest, false))

	data, err := vfs.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "logo-bytes", string(data))
}

func TestFetch_ExistingKeptUnlessOverwrite(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("fresh"))
	}))
	defer srv.Close()

	f, vfs := newFetcher(t)
	require.NoError(t, vfs.MkdirAll("/picon", 0o755))
	require.NoError(t, vfs.WriteFile("/picon/a.png", []byte("old"), 0o644))

	assert.True(t, f.Fetch(context.Background(), srv.URL, "/picon/a.png", false))
	assert.Equal(t, int32(0), hits.Load())

	assert.True(t, f.Fetch(context.Background(), srv.URL, "/picon/a.png", true))
	data, _ := vfs.ReadFile("/picon/a.png")
	assert.Equal(t, "fresh", string(data))
}

func TestFetch_PlaceholderOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f, vfs := newFetcher(t)
	assert.False(t, f.Fetch(context.Background(), srv.URL, "/picon/b.png", false))
	data, err := vfs.ReadFile("/picon/b.png")
	require.NoError(t, err)
	assert.Equal(t, Placeholder(), data)
}

func TestFetch_MissingMarkerSkipsDownload(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	f, vfs := newFetcher(t)
	for i, u := range []string{srv.URL + "/missing.png", srv.URL + "/MISSING/logo.png"} {
		dest := "/picon/" + string(rune('a'+i)) + ".png"
		assert.False(t, f.Fetch(context.Background(), u, dest, false))
		data, err := vfs.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, Placeholder(), data)
	}
	assert.Equal(t, int32(0), hits.Load())
}
