package edit_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/markis/gh-minigpt/internal/edit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelection(t *testing.T) {
	t.Parallel()

	sel, err := edit.ParseSelection("3")
	require.NoError(t, err)
	assert.Equal(t, edit.Selection{Start: 3, End: 3}, sel)

	sel, err = edit.ParseSelection("2:5")
	require.NoError(t, err)
	assert.Equal(t, edit.Selection{Start: 2, End: 5}, sel)
	assert.Equal(t, "2:5", sel.String())

	for _, bad := range []string{"", "0", "5:2", "a:b", "1:"} {
		_, err := edit.ParseSelection(bad)
		assert.Error(t, err, bad)
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.css")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o640))
	return path
}

func TestDocument_ReplaceAndSave(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "body {\ncolor: orange;\nbackground: green;\n}\n")

	doc, err := edit.Open(path)
	require.NoError(t, err)
	assert.Equal(t, 4, doc.Lines())

	sel := edit.Selection{Start: 2, End: 3}
	text, err := doc.Text(sel)
	require.NoError(t, err)
	assert.Equal(t, "color: orange;\nbackground: green;", text)

	require.NoError(t, doc.Replace(sel, "color: #ffa500;\nbackground: #008000;\nborder: 0;\n"))
	require.NoError(t, doc.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "body {\ncolor: #ffa500;\nbackground: #008000;\nborder: 0;\n}\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDocument_NoTrailingNewline(t *testing.T) {
	t.Parallel()
	doc, err := edit.Open(writeFile(t, "one\ntwo"))
	require.NoError(t, err)

	require.NoError(t, doc.Replace(edit.Selection{Start: 2, End: 2}, "2"))
	assert.Equal(t, "one\n2", doc.String())
}

func TestDocument_SelectionOutOfRange(t *testing.T) {
	t.Parallel()
	doc, err := edit.Open(writeFile(t, "only\n"))
	require.NoError(t, err)

	_, err = doc.Text(edit.Selection{Start: 1, End: 2})
	assert.ErrorContains(t, err, "past the end")
	assert.Error(t, doc.Replace(edit.Selection{Start: 2, End: 2}, "x"))
}
