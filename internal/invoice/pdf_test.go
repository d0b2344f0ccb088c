package invoice

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRendererCreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "invoices")

	_, err := NewRenderer(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRenderWritesPDF(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRenderer(dir)
	require.NoError(t, err)

	inv := Assemble(completedSession())
	require.NotNil(t, inv)

	path, err := r.Render(inv)
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "INV-ABCD1234_"))
	assert.True(t, strings.HasSuffix(path, ".pdf"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, len(data) > 0)
	assert.True(t, strings.HasPrefix(string(data), "%PDF-"), "output must be a PDF document")
}

func TestRenderMultilineAddress(t *testing.T) {
	r, err := NewRenderer(t.TempDir())
	require.NoError(t, err)

	s := completedSession()
	s.ClientInfo.Address = "1 High St\nLondon\nSW1A 1AA"
	inv := Assemble(s)
	require.NotNil(t, inv)

	_, err = r.Render(inv)
	assert.NoError(t, err)
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Works Completed", titleCase("works_completed"))
	assert.Equal(t, "Deposit", titleCase("deposit"))
	assert.Equal(t, "", titleCase(""))
}
