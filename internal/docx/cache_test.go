package docx

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplate(t *testing.T, path string, lines ...string) {
	t.Helper()
	d := New()
	for _, line := range lines {
		d.Body().AddParagraph(line)
	}
	require.NoError(t, d.SaveFile(path))
}

func TestCache_Open(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cache, err := NewCache(2, logger)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "modelo.docx")
	writeTemplate(t, path, "{patient_name}")

	first, err := cache.Open(path)
	require.NoError(t, err)
	first.Body().Paragraphs()[0].Runs()[0].SetText("Maria")

	second, err := cache.Open(path)
	require.NoError(t, err)
	assert.Equal(t, "{patient_name}", second.Body().Paragraphs()[0].Text())

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, 1, stats.Entries)
}

func TestCache_ReloadsChangedFile(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cache, err := NewCache(2, logger)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "modelo.docx")
	writeTemplate(t, path, "versão 1")
	_, err = cache.Open(path)
	require.NoError(t, err)

	writeTemplate(t, path, "versão 2", "com uma linha a mais")
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	doc, err := cache.Open(path)
	require.NoError(t, err)
	assert.Equal(t, "versão 2", doc.Body().Paragraphs()[0].Text())
	assert.Equal(t, int64(1), cache.Stats().Reloads)
}

func TestCache_EvictionAndInvalidate(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cache, err := NewCache(1, logger)
	require.NoError(t, err)

	dir := t.TempDir()
	a := filepath.Join(dir, "a.docx")
	b := filepath.Join(dir, "b.docx")
	writeTemplate(t, a, "a")
	writeTemplate(t, b, "b")

	_, err = cache.Open(a)
	require.NoError(t, err)
	_, err = cache.Open(b)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Stats().Entries)

	cache.Invalidate(b)
	assert.Equal(t, 0, cache.Stats().Entries)

	_, err = cache.Open(filepath.Join(dir, "missing.docx"))
	assert.Error(t, err)
}

func TestNewCache_InvalidSize(t *testing.T) {
	logger, _ := test.NewNullLogger()
	_, err := NewCache(0, logger)
	assert.Error(t, err)
}
