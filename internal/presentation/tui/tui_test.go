package tui

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))

	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, IsTerminal(f))
}

func TestStackRenderer_Plain(t *testing.T) {
	var buf bytes.Buffer
	r := NewStackRenderer(&buf)

	require.NoError(t, r.Line(3, "b'x'", KindValue))
	require.NoError(t, r.Line(7, "b'ERROR'", KindError))

	assert.Equal(t, "3: b'x'\n7: b'ERROR'\n", buf.String())
}

func TestRenderMarkdown_Plain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderMarkdown(&buf, "# Title\n"))
	assert.Equal(t, "# Title\n", buf.String())
}
