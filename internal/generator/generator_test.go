package generator

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/zapgen/internal/configfile"
	"github.com/roach88/zapgen/internal/store"
	"github.com/roach88/zapgen/internal/templates"
	"github.com/roach88/zapgen/internal/testutil"
	"github.com/roach88/zapgen/internal/zcl"
)

type fixture struct {
	st        *store.Store
	sessionID int64
	packageID int64
}

func setup(t *testing.T, genPath string) fixture {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "generate.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	_, err = zcl.NewLoader(nil).LoadMetadata(ctx, st, "../../testdata/zcl/zcl.yaml")
	require.NoError(t, err)
	pkgID, err := templates.NewLoader(nil).LoadTemplates(ctx, st, genPath)
	require.NoError(t, err)
	sessionID, err := configfile.NewCodec(nil).Import(ctx, st, "../../testdata/config/light.zap")
	require.NoError(t, err)
	require.NoError(t, st.AttachPackage(ctx, sessionID, pkgID, true))

	return fixture{st: st, sessionID: sessionID, packageID: pkgID}
}

func TestGenerate_LightConfiguration(t *testing.T) {
	f := setup(t, "../../testdata/gen/gen-templates.yaml")
	out := t.TempDir()

	res, err := New(nil).Generate(context.Background(), f.st, f.sessionID, f.packageID, out, Options{})
	require.NoError(t, err)
	assert.False(t, res.HasErrors)
	assert.Empty(t, res.Errors())
	require.Len(t, res.Files, 2)
	assert.Equal(t, filepath.Join(out, "endpoint-config.h"), res.Files[0].Path)
	assert.Nil(t, res.PostGeneration)
	assert.NoFileExists(t, filepath.Join(out, ResultFileName))

	testutil.AssertGoldenFiles(t, "light", out, "endpoint-config.h", "components.txt")
}

// writePackage writes a template package with the given templates into a
// temp directory and returns its path.
func writePackage(t *testing.T, extra string, tmpls map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	doc := "name: test\ntemplates:\n"
	for _, name := range []string{"a", "b"} {
		body, ok := tmpls[name]
		if !ok {
			continue
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".tmpl"), []byte(body), 0o644))
		doc += "  - {path: " + name + ".tmpl, name: " + name + ", output: " + name + ".txt}\n"
	}
	doc += extra
	p := filepath.Join(dir, "gen.yaml")
	require.NoError(t, os.WriteFile(p, []byte(doc), 0o644))
	return p
}

func TestGenerate_FailedTemplateMarksRun(t *testing.T) {
	pkg := writePackage(t, "", map[string]string{
		"a": "{{ .Session.Key | nosuchfunc }}",
		"b": "{{ len .EndpointTypes }} endpoint types",
	})
	f := setup(t, pkg)
	out := t.TempDir()

	res, err := New(nil).Generate(context.Background(), f.st, f.sessionID, f.packageID, out, Options{GenResultFile: true})
	require.NoError(t, err)
	assert.True(t, res.HasErrors)
	require.Len(t, res.Errors(), 1)
	assert.Equal(t, "a", res.Errors()[0].Template)
	assert.Contains(t, res.Errors()[0].Error, "parse template")

	assert.NoFileExists(t, filepath.Join(out, "a.txt"))
	body, err := os.ReadFile(filepath.Join(out, "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "1 endpoint types", string(body))

	raw, err := os.ReadFile(filepath.Join(out, ResultFileName))
	require.NoError(t, err)
	var written Result
	require.NoError(t, yaml.Unmarshal(raw, &written))
	assert.True(t, written.HasErrors)
	assert.Len(t, written.Files, 2)
}

func TestGenerate_ExecutionErrorWritesNothing(t *testing.T) {
	pkg := writePackage(t, "", map[string]string{
		"a": `{{ fail "boom" }}`,
	})
	f := setup(t, pkg)
	out := t.TempDir()

	res, err := New(nil).Generate(context.Background(), f.st, f.sessionID, f.packageID, out, Options{})
	require.NoError(t, err)
	assert.True(t, res.HasErrors)
	assert.Contains(t, res.Files[0].Error, "boom")
	assert.NoFileExists(t, filepath.Join(out, "a.txt"))
}

func TestGenerate_Backup(t *testing.T) {
	pkg := writePackage(t, "", map[string]string{"a": "new"})
	f := setup(t, pkg)
	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(out, "a.txt"), []byte("old"), 0o644))

	res, err := New(nil).Generate(context.Background(), f.st, f.sessionID, f.packageID, out, Options{Backup: true})
	require.NoError(t, err)
	assert.False(t, res.HasErrors)

	backup, err := os.ReadFile(filepath.Join(out, "a.txt~"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(backup))
}

func TestGenerate_TemplateContext(t *testing.T) {
	pkg := writePackage(t, "", map[string]string{
		"a": `{{ .Version }}|{{ .Settings.defaultResponsePolicy }}|{{ len .Clusters }}|{{ .Template.Output }}`,
	})
	f := setup(t, pkg)
	out := t.TempDir()

	_, err := New(nil).Generate(context.Background(), f.st, f.sessionID, f.packageID, out, Options{Version: "1.2.3"})
	require.NoError(t, err)
	body, err := os.ReadFile(filepath.Join(out, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "1.2.3|always|4|a.txt", string(body))
}

func TestGenerate_PostGeneration(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("post-generation test uses a POSIX shell")
	}
	pkg := writePackage(t, "postGeneration: sh -c 'echo ran > post.txt'\n", map[string]string{"a": "x"})
	f := setup(t, pkg)

	t.Run("runs in output directory", func(t *testing.T) {
		out := t.TempDir()
		res, err := New(nil).Generate(context.Background(), f.st, f.sessionID, f.packageID, out, Options{})
		require.NoError(t, err)
		require.NotNil(t, res.PostGeneration)
		assert.Empty(t, res.PostGeneration.Error)
		assert.FileExists(t, filepath.Join(out, "post.txt"))
	})

	t.Run("skipped", func(t *testing.T) {
		out := t.TempDir()
		res, err := New(nil).Generate(context.Background(), f.st, f.sessionID, f.packageID, out, Options{SkipPostGeneration: true})
		require.NoError(t, err)
		assert.Nil(t, res.PostGeneration)
		assert.NoFileExists(t, filepath.Join(out, "post.txt"))
	})
}

func TestGenerate_PostGenerationFailureIsNotFatal(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("post-generation test uses a POSIX shell")
	}
	pkg := writePackage(t, "postGeneration: sh -c 'exit 3'\n", map[string]string{"a": "x"})
	f := setup(t, pkg)

	res, err := New(nil).Generate(context.Background(), f.st, f.sessionID, f.packageID, t.TempDir(), Options{})
	require.NoError(t, err)
	assert.False(t, res.HasErrors)
	require.NotNil(t, res.PostGeneration)
	assert.Equal(t, 3, res.PostGeneration.ExitCode)
}

func TestGenerate_UnknownPackage(t *testing.T) {
	f := setup(t, "../../testdata/gen/gen-templates.yaml")
	_, err := New(nil).Generate(context.Background(), f.st, f.sessionID, 999, t.TempDir(), Options{})
	assert.Error(t, err)
}

func TestParseCommand(t *testing.T) {
	args, err := parseCommand(`make -C "out dir" all`)
	require.NoError(t, err)
	assert.Equal(t, []string{"make", "-C", "out dir", "all"}, args)

	_, err = parseCommand("   ")
	assert.Error(t, err)

	_, err = parseCommand(`echo "unterminated`)
	assert.Error(t, err)
}
