package zcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/zapgen/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "zcl.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestLoad_RecordsPackageAndClusters(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	res, err := NewLoader(nil).Load(ctx, st, "testdata/zcl.yaml")
	require.NoError(t, err)
	assert.False(t, res.Reused)
	assert.Equal(t, 4, res.Clusters)

	pkg, err := st.PackageByID(ctx, res.PackageID)
	require.NoError(t, err)
	assert.Equal(t, store.PackageTypeMetadata, pkg.Type)
	assert.Equal(t, "1.0", pkg.Version)
	assert.True(t, filepath.IsAbs(pkg.Path))

	onoff, err := st.ClusterByCode(ctx, res.PackageID, 6)
	require.NoError(t, err)
	assert.Equal(t, "OnOff", onoff.Label)
	assert.Equal(t, []string{"client", "server"}, onoff.Sides)

	mfg, err := st.ClusterByCode(ctx, res.PackageID, 0xFC00)
	require.NoError(t, err)
	require.NotNil(t, mfg.ManufacturerCode)
	assert.Equal(t, int64(0x1002), *mfg.ManufacturerCode)
	assert.Equal(t, []string{"server"}, mfg.Sides)
}

func TestLoad_ReusesIdenticalPackage(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	l := NewLoader(nil)

	first, err := l.LoadMetadata(ctx, st, "testdata/zcl.yaml")
	require.NoError(t, err)
	res, err := l.Load(ctx, st, "testdata/zcl.yaml")
	require.NoError(t, err)

	assert.True(t, res.Reused)
	assert.Equal(t, first, res.PackageID)

	clusters, err := st.Clusters(ctx, first)
	require.NoError(t, err)
	assert.Len(t, clusters, 4, "reload must not duplicate clusters")
}

func TestLoad_Errors(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"empty path", "", "no metadata file"},
		{"missing file", filepath.Join(dir, "absent.yaml"), "read metadata"},
		{"bad yaml", write("bad.yaml", "clusters: [\n"), "parse metadata"},
		{"no clusters", write("empty.yaml", "version: 1\n"), "no clusters"},
		{"missing name", write("noname.yaml", "clusters:\n  - code: 6\n"), "missing name"},
		{"duplicate code", write("dup.yaml", "clusters:\n  - {code: 6, name: A}\n  - {code: 6, name: B}\n"), "already used"},
		{"bad side", write("side.yaml", "clusters:\n  - {code: 6, name: A, sides: [middle]}\n"), "invalid side"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(nil).Load(ctx, st, tt.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	pkgs, err := st.PackagesByType(ctx, store.PackageTypeMetadata)
	require.NoError(t, err)
	assert.Empty(t, pkgs, "failed loads must not leave packages behind")
}

func TestParse_JSON(t *testing.T) {
	doc, err := Parse([]byte(`{"version": "2", "clusters": [{"code": 6, "name": "OnOff", "sides": ["Server"]}]}`))
	require.NoError(t, err)
	assert.Equal(t, "2", doc.Version)
	assert.Equal(t, []string{"server"}, doc.Clusters[0].Sides)
}
