package web

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMarkdown_EmptyInput(t *testing.T) {
	assert.Equal(t, "", RenderMarkdown(""))
}

func TestRenderMarkdown_PlainText(t *testing.T) {
	result := RenderMarkdown("hello world")
	assert.Contains(t, result, "hello world")
}

func TestRenderMarkdown_Bold(t *testing.T) {
	result := RenderMarkdown("**bold text**")
	assert.Contains(t, result, "<strong>bold text</strong>")
}

func TestRenderMarkdown_HardWraps(t *testing.T) {
	result := RenderMarkdown("line one\nline two")
	assert.Contains(t, result, "<br")
}

func TestRenderMarkdown_Link(t *testing.T) {
	result := RenderMarkdown("[click](https://example.com)")
	assert.Contains(t, result, `<a href="https://example.com"`)
	assert.Contains(t, result, "click</a>")
}

func TestRenderMarkdown_SanitizesScript(t *testing.T) {
	result := RenderMarkdown(`<script>alert("xss")</script>`)
	assert.NotContains(t, result, "<script>")
}

func TestRenderMarkdown_SanitizesJavascriptLinks(t *testing.T) {
	result := RenderMarkdown(`[x](javascript:alert(1))`)
	assert.NotContains(t, result, "javascript:")
}

func TestRenderMarkdown_GFMStrikethrough(t *testing.T) {
	result := RenderMarkdown("~~deleted~~")
	assert.Contains(t, result, "<del>deleted</del>")
}

func TestLoadContent(t *testing.T) {
	def, err := LoadContent("")
	require.NoError(t, err)
	assert.Contains(t, def, "# Welcome")

	path := filepath.Join(t.TempDir(), "site.md")
	require.NoError(t, os.WriteFile(path, []byte("# Hello"), 0o600))
	got, err := LoadContent(path)
	require.NoError(t, err)
	assert.Equal(t, "# Hello", got)

	_, err = LoadContent(filepath.Join(t.TempDir(), "missing.md"))
	assert.Error(t, err)
}
