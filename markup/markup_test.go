package markup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMarkdown(t *testing.T) {
	md, err := ToMarkdown(`<h2>Images</h2><p>Ein <strong>Image</strong> ist eine Vorlage.</p><ul><li>build</li><li>run</li></ul>`)
	require.NoError(t, err)
	assert.Contains(t, string(md), "## Images")
	assert.Contains(t, string(md), "**Image**")
	assert.Contains(t, string(md), "- build")
	assert.NotContains(t, string(md), "<body>")
}

func TestToMarkdownEmpty(t *testing.T) {
	md, err := ToMarkdown("   ")
	require.NoError(t, err)
	assert.Empty(t, md)
}

func TestSummarizeDocument(t *testing.T) {
	summary := Summarize(`<html><head>
		<title>Docker lernen</title>
		<meta name="description" content="Container Schritt für Schritt">
		<meta name="keywords" content="docker, devops, ,container">
	</head><body><h1>Ignored</h1></body></html>`)
	assert.Equal(t, "Docker lernen", summary.Title)
	assert.Equal(t, "Container Schritt für Schritt", summary.Description)
	assert.Equal(t, []string{"docker", "devops", "container"}, summary.Keywords)
}

func TestSummarizeFragment(t *testing.T) {
	long := strings.Repeat("wort ", 100)
	summary := Summarize(`<h2>Volumes</h2><p>` + long + `</p>`)
	assert.Equal(t, "Volumes", summary.Title)
	assert.True(t, strings.HasSuffix(summary.Description, "…"))
	assert.LessOrEqual(t, len([]rune(summary.Description)), maxDescription+1)
	assert.Empty(t, summary.Keywords)
}
