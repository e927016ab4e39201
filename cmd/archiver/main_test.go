package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	root := newRootCommand(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDemo(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "demo", "--out", dir)
	require.NoError(t, err, out)

	assert.Contains(t, out, "registro-docente-ROSSI-MARIA-1.pdf")
	assert.Contains(t, out, "0 failed")
	assert.FileExists(t, filepath.Join(dir, "registri", "docenti", "registro-docente-ROSSI-MARIA-1.pdf"))
	assert.FileExists(t, filepath.Join(dir, "registri", "sostegno", "registro-sostegno-NERI-ANNA-4.pdf"))

	classes, err := os.ReadDir(filepath.Join(dir, "registri", "classi"))
	require.NoError(t, err)
	assert.Len(t, classes, 2)
}

func TestTerms(t *testing.T) {
	t.Setenv("SCHOOL_YEAR", "2024/2025")
	t.Setenv("SCHOOL_YEAR_START", "2024-09-11")
	t.Setenv("SCHOOL_FIRST_TERM_END", "2025-01-31")
	t.Setenv("SCHOOL_YEAR_END", "2025-06-07")

	out, err := run(t, "terms")
	require.NoError(t, err)
	assert.Contains(t, out, "Anno scolastico 2024/2025")
	assert.Contains(t, out, "Primo Quadrimestre")
	assert.Contains(t, out, "11/09/2024")
	assert.Contains(t, out, "07/06/2025")
}

func TestGenerate_NeedsTargets(t *testing.T) {
	_, err := run(t, "teacher")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--id")
}
