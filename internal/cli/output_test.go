package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOutput(&buf, map[string]string{"a": "<b>"}))
	require.Equal(t, "{\n  \"a\": \"<b>\"\n}\n", buf.String())
}

func TestWriteOutputJSONL(t *testing.T) {
	orig := jsonlOutput
	jsonlOutput = true
	defer func() { jsonlOutput = orig }()

	var buf bytes.Buffer
	require.NoError(t, WriteOutput(&buf, []map[string]int{{"n": 1}, {"n": 2}}))
	require.Equal(t, "{\"n\":1}\n{\"n\":2}\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteOutput(&buf, map[string]int{"n": 3}))
	require.Equal(t, "{\"n\":3}\n", buf.String())
}

func TestTruncateText(t *testing.T) {
	require.Equal(t, "short", truncateText("short", 10))
	require.Equal(t, "a b c", truncateText("a\nb   c", 10))
	require.Equal(t, "abcdefg...", truncateText("abcdefghijklmnop", 10))
}

func TestFormatValue(t *testing.T) {
	require.Equal(t, "-", formatValue(nil))
	require.Equal(t, `""`, formatValue(""))
	require.Equal(t, `["a","b"]`, formatValue([]any{"a", "b"}))
	require.Equal(t, "3", formatValue(int64(3)))
}
