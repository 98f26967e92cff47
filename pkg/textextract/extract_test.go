package textextract

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTXT(t *testing.T) {
	content := "  hello from a text file\nsecond line  "
	r := strings.NewReader(content)

	out, err := Extract(r, int64(len(content)), ".txt")
	require.NoError(t, err)
	require.Len(t, out.Pages, 1)
	assert.Equal(t, 1, out.Pages[0].Number)
	assert.Equal(t, "hello from a text file\nsecond line", out.Pages[0].Content)
}

func TestExtractTypeAliases(t *testing.T) {
	content := "x"
	for _, ft := range []string{".txt", "txt", "text/plain", "TXT"} {
		_, err := Extract(strings.NewReader(content), 1, ft)
		assert.NoError(t, err, "type %q", ft)
	}

	_, err := Extract(strings.NewReader(content), 1, ".csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestExtractDOCX(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<w:document><w:body><w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:t>World</w:t></w:r></w:p></w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	out, err := Extract(bytes.NewReader(buf.Bytes()), int64(buf.Len()), ".docx")
	require.NoError(t, err)
	require.Len(t, out.Pages, 1)
	assert.Equal(t, "Hello World", out.Pages[0].Content)
}

func TestStripXMLTags(t *testing.T) {
	assert.Equal(t, "a b c", stripXMLTags("<p>a</p><p>b</p><span>c</span>"))
	assert.Equal(t, "plain", stripXMLTags("plain"))
}

func TestExtractedText(t *testing.T) {
	e := &Extracted{Pages: []Page{{Number: 1, Content: "one"}, {Number: 2, Content: "two"}}}
	assert.Equal(t, "one\ntwo\n", e.Text())
}
