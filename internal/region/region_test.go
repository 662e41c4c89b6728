// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package region

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundled(t *testing.T) {
	tbl, err := Bundled()
	require.NoError(t, err)

	auto, err := tbl.Lookup("auto")
	require.NoError(t, err)
	assert.Equal(t, Region{Code: Auto, Name: "* Automatic *", IP: "", TIDs: "0"}, auto)

	de, err := tbl.Lookup("DE")
	require.NoError(t, err)
	assert.NotEmpty(t, de.IP)
	assert.NotEmpty(t, de.TIDs)

	all := tbl.All()
	require.NotEmpty(t, all)
	assert.Equal(t, Auto, all[0].Code)
	for i := 2; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].Name, all[i].Name)
	}
}

func TestParse_DropsIncompleteEntries(t *testing.T) {
	tbl, err := Parse(strings.NewReader(`<regions version="2.0">
		<region country="DE" name="Germany" ip="1.2.3.4" tids="5"/>
		<region country="FR" name="France" ip="" tids="9"/>
		<region country="" name="Nowhere" ip="1.1.1.1" tids="1"/>
		<region country="IT" ip="5.6.7.8" tids="b"/>
	</regions>`))
	require.NoError(t, err)

	assert.Equal(t, 3, tbl.Len(), "AUTO, DE and IT")
	_, err = tbl.Lookup("FR")
	require.ErrorIs(t, err, ErrUnknownRegion)
	it, err := tbl.Lookup("it")
	require.NoError(t, err)
	assert.Equal(t, "IT", it.Name)
}

func TestLoad_OverrideVersion(t *testing.T) {
	dir := t.TempDir()
	newer := filepath.Join(dir, "newer.xml")
	older := filepath.Join(dir, "older.xml")
	require.NoError(t, os.WriteFile(newer, []byte(`<regions version="99.0.0"><region country="ZZ" name="Test" ip="1.1.1.1" tids="f"/></regions>`), 0o600))
	require.NoError(t, os.WriteFile(older, []byte(`<regions version="0.1"><region country="ZZ" name="Test" ip="1.1.1.1" tids="f"/></regions>`), 0o600))

	tbl, err := Load(newer)
	require.NoError(t, err)
	assert.Equal(t, "99.0.0", tbl.Version())
	_, err = tbl.Lookup("ZZ")
	require.NoError(t, err)

	tbl, err = Load(older)
	require.NoError(t, err)
	_, err = tbl.Lookup("ZZ")
	require.ErrorIs(t, err, ErrUnknownRegion)

	tbl, err = Load(filepath.Join(dir, "missing.xml"))
	require.NoError(t, err)
	_, err = tbl.Lookup("DE")
	require.NoError(t, err)
}
