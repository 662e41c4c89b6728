// SPDX-License-Identifier: MIT

package epg

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/plutosync/internal/guide"
)

const ref = "4097:0:1:1A:0:0:0:0:0:0:0"

func TestXMLTVCache_Commit(t *testing.T) {
	dir := t.TempDir()
	c := NewXMLTVCache(dir)
	ctx := context.Background()

	require.NoError(t, c.ImportEvents(ctx, ref, []guide.Event{
		{Start: 1714561200, Duration: 1800, Title: "Second", Plot: "Café", Genre: guide.GenreNews},
	}))
	require.NoError(t, c.ImportEvents(ctx, ref, []guide.Event{
		{Start: 1714557600, Duration: 3600, Title: "First", Genre: guide.GenreNone},
	}))
	require.NoError(t, c.Commit(ctx, "DE"))

	doc, err := Read(filepath.Join(dir, "pluto_tv_de.xml"))
	require.NoError(t, err)
	require.Len(t, doc.Channels, 1)
	assert.Equal(t, ChannelID(ref), doc.Channels[0].ID)
	require.Len(t, doc.Programs, 2)
	assert.Equal(t, "First", doc.Programs[0].Title.Value)
	assert.Equal(t, "20240501100000 +0000", doc.Programs[0].Start)
	assert.Equal(t, "20240501110000 +0000", doc.Programs[0].Stop)
	assert.Nil(t, doc.Programs[0].Desc)
	assert.Empty(t, doc.Programs[0].Category)
	require.NotNil(t, doc.Programs[1].Desc)
	assert.Equal(t, "Café", doc.Programs[1].Desc.Value, "text is NFC normalized")
	assert.Equal(t, "News / Current affairs", doc.Programs[1].Category[0].Value)

	channels, err := os.ReadFile(filepath.Join(dir, "pluto_tv_de.channels.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(channels), `<channel id="`+ChannelID(ref)+`">`+ref+`</channel>`)

	require.NoError(t, c.Commit(ctx, "US"))
	empty, err := Read(filepath.Join(dir, "pluto_tv_us.xml"))
	require.NoError(t, err)
	assert.Empty(t, empty.Programs, "commit clears pending events")
}

func TestXMLTVCache_Discard(t *testing.T) {
	dir := t.TempDir()
	c := NewXMLTVCache(dir)
	ctx := context.Background()

	require.NoError(t, c.ImportEvents(ctx, ref, []guide.Event{{Start: 1714557600, Duration: 60, Title: "Dropped"}}))
	c.Discard()
	require.NoError(t, c.Commit(ctx, "US"))

	doc, err := Read(filepath.Join(dir, "pluto_tv_us.xml"))
	require.NoError(t, err)
	assert.Empty(t, doc.Channels)
	assert.Empty(t, doc.Programs)
}

func TestXMLTVCache_SourcesAndRemove(t *testing.T) {
	dir := t.TempDir()
	c := NewXMLTVCache(dir)
	require.NoError(t, c.Commit(context.Background(), "DE"))
	require.NoError(t, c.WriteSources([]string{"DE", "US"}))

	data, err := os.ReadFile(filepath.Join(dir, "pluto_tv.sources.xml"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), `type="gen_xmltv"`))

	require.NoError(t, c.Remove("DE"))
	require.NoError(t, c.Remove("DE"), "removing twice is fine")
	_, err = os.Stat(filepath.Join(dir, "pluto_tv_de.xml"))
	assert.True(t, os.IsNotExist(err))
}

func TestRead_RejectsEntities(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evil.xml")
	require.NoError(t, os.WriteFile(path, []byte(`<?xml version="1.0"?>
<!DOCTYPE foo [<!ENTITY xxe SYSTEM "file:///etc/passwd">]>
<tv><channel id="x"><display-name>&xxe;</display-name></channel></tv>`), 0o600))
	_, err := Read(path)
	require.Error(t, err)
}

func TestChannelID(t *testing.T) {
	assert.Equal(t, "pluto.4097_0_1_1A_0_0_0_0_0_0_0", ChannelID(ref))
}
