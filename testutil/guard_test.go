package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct{ msg string }

func (r *recorder) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func TestPredicates(t *testing.T) {
	assert.True(t, DomainImportForbidden("cornucopia/pkg/domain"))
	assert.True(t, DomainImportForbidden("example.com/mod/pkg/domain@v1"))
	assert.False(t, DomainImportForbidden("cornucopia/pkg/notdomain"))

	assert.True(t, InternalImportForbidden("cornucopia/internal/synth"))
	assert.False(t, InternalImportForbidden("cornucopia/pkg/domain"))

	assert.True(t, InfraImportForbidden("cornucopia/internal/infra/blob/s3"))
	assert.False(t, InfraImportForbidden("cornucopia/internal/blob"))

	f := PackagesForbidden("internal/validation", "/internal/diagnostics/")
	assert.True(t, f("cornucopia/internal/validation"))
	assert.True(t, f("cornucopia/internal/diagnostics/sub"))
	assert.False(t, f("cornucopia/internal/validationx"))
	assert.False(t, f("fmt"))
}

func writeFile(t *testing.T, dir, name, src string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600))
}

func TestDirectImportsSkipsTestsAndDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package tmp\nimport (\n\"fmt\"\n\"os\"\n)\nvar _ = fmt.Sprint\nvar _ = os.Args\n")
	writeFile(t, dir, "b.go", "package tmp\nimport \"fmt\"\n")
	writeFile(t, dir, "a_test.go", "package tmp\nimport \"cornucopia/internal/infra/blob/s3\"\n")
	writeFile(t, dir, "notes.txt", "import \"nothing\"")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.go"), 0o755))

	got, err := DirectImports(dir)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"fmt": {"a.go", "b.go"}, "os": {"a.go"}}, got)

	AssertNoDirectImports(t, dir, InfraImportForbidden, "test files are ignored")
}

func TestDirectImportsErrors(t *testing.T) {
	_, err := DirectImports(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	dir := t.TempDir()
	writeFile(t, dir, "bad.go", "package tmp\nimport (")
	_, err = DirectImports(dir)
	assert.Error(t, err)
}

func TestReport(t *testing.T) {
	var r recorder
	report(&r, "forbidden direct imports", "why", nil)
	assert.Empty(t, r.msg)
	report(&r, "forbidden direct imports", "why", []string{"a", "b"})
	assert.Equal(t, "forbidden direct imports detected (why):\na\nb", r.msg)
}

func TestAssertNoTransitiveDependencyUsesGoList(t *testing.T) {
	old := goListDeps
	t.Cleanup(func() { goListDeps = old })
	goListDeps = func(pattern string) ([]byte, error) {
		assert.Equal(t, "./x", pattern)
		return []byte("fmt\n\ncornucopia/pkg/domain\n"), nil
	}
	AssertNoTransitiveDependency(t, "./x", InfraImportForbidden, "none listed")
}
