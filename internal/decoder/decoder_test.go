package decoder

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func writeFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

type readResult struct {
	rows []Row
	errs []error
}

func readAll(t *testing.T, path string, opts Options) readResult {
	t.Helper()
	r, err := Open(path, opts)
	require.NoError(t, err)
	defer r.Close()

	var res readResult
	for row, err := range r.Rows() {
		if err != nil {
			res.errs = append(res.errs, err)
			continue
		}
		res.rows = append(res.rows, row)
	}
	return res
}

func TestRowsSplitsAndTrims(t *testing.T) {
	path := writeFile(t, []byte("alice@x.com , Jane ,bob@x.com\n\n  c@x.com,,d@x.com  \n"))

	res := readAll(t, path, Options{})
	require.Empty(t, res.errs)
	require.Len(t, res.rows, 3)

	assert.Equal(t, 1, res.rows[0].Index)
	assert.Equal(t, "alice@x.com , Jane ,bob@x.com", res.rows[0].Text)
	assert.Equal(t, []string{"alice@x.com", "Jane", "bob@x.com"}, res.rows[0].Fields)

	assert.Equal(t, 2, res.rows[1].Index)
	assert.Equal(t, []string{""}, res.rows[1].Fields)

	assert.Equal(t, 3, res.rows[2].Index)
	assert.Equal(t, []string{"c@x.com", "", "d@x.com"}, res.rows[2].Fields)
}

func TestRowsHandlesLineEndings(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{name: "lf", content: "a,b\nc,d\n", want: []string{"a,b", "c,d"}},
		{name: "crlf", content: "a,b\r\nc,d\r\n", want: []string{"a,b", "c,d"}},
		{name: "no trailing newline", content: "a,b\nc,d", want: []string{"a,b", "c,d"}},
		{name: "bom stripped", content: "\xEF\xBB\xBFa,b\nc,d\n", want: []string{"a,b", "c,d"}},
		{name: "empty file", content: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := readAll(t, writeFile(t, []byte(tt.content)), Options{})
			require.Empty(t, res.errs)

			var got []string
			for _, row := range res.rows {
				got = append(got, row.Text)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRowsFallbackDecoding(t *testing.T) {
	// 0xE9 is 'é' in Windows-1252 and invalid on its own in UTF-8
	content := []byte("ren\xe9@x.com,Ren\xe9,\n" + "zoë@x.com,Zoë,\n")
	res := readAll(t, writeFile(t, content), Options{})

	require.Empty(t, res.errs)
	require.Len(t, res.rows, 2)
	assert.Equal(t, "rené@x.com", res.rows[0].Fields[0])
	assert.Equal(t, "René", res.rows[0].Fields[1])
	assert.Equal(t, "zoë@x.com", res.rows[1].Fields[0], "valid UTF-8 must pass through unchanged")
}

func TestRowsLineTooLongIsSkipped(t *testing.T) {
	long := strings.Repeat("x", 200)
	content := "first@x.com,a,b\n" + long + "\n" + "after@x.com,a,b\n"

	res := readAll(t, writeFile(t, []byte(content)), Options{MaxLineBytes: 64})

	require.Len(t, res.errs, 1)
	var lineErr *LineError
	require.True(t, errors.As(res.errs[0], &lineErr))
	assert.Equal(t, 2, lineErr.Line)
	assert.ErrorIs(t, res.errs[0], ErrLineTooLong)

	require.Len(t, res.rows, 2)
	assert.Equal(t, 1, res.rows[0].Index)
	assert.Equal(t, 3, res.rows[1].Index, "line numbering must count the skipped line")
	assert.Equal(t, "after@x.com", res.rows[1].Fields[0])
}

func TestRowsLongLineBeyondReadBuffer(t *testing.T) {
	// longer than the bufio buffer but within the limit
	long := strings.Repeat("y", readBufferSize*2)
	content := long + ",z,w\nnext,a,b\n"

	res := readAll(t, writeFile(t, []byte(content)), Options{})
	require.Empty(t, res.errs)
	require.Len(t, res.rows, 2)
	assert.Equal(t, long, res.rows[0].Fields[0])
	assert.Equal(t, "next", res.rows[1].Fields[0])
}

func TestRowsStopEarly(t *testing.T) {
	r, err := Open(writeFile(t, []byte("a\nb\nc\n")), Options{})
	require.NoError(t, err)
	defer r.Close()

	count := 0
	for range r.Rows() {
		count++
		if count == 1 {
			break
		}
	}
	assert.Equal(t, 1, count)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.csv"), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDecodeLine(t *testing.T) {
	t.Run("valid utf8 unchanged", func(t *testing.T) {
		got, err := DecodeLine([]byte("héllo"), nil)
		require.NoError(t, err)
		assert.Equal(t, "héllo", got)
	})

	t.Run("mixed valid and invalid", func(t *testing.T) {
		got, err := DecodeLine([]byte("é\x80"), charmap.Windows1252)
		require.NoError(t, err)
		assert.Equal(t, "é€", got)
	})

	t.Run("undefined windows-1252 bytes decode to C1 controls", func(t *testing.T) {
		for _, b := range []byte{0x81, 0x8D, 0x8F, 0x90, 0x9D} {
			got, err := DecodeLine([]byte{'a', b, 'z'}, charmap.Windows1252)
			require.NoError(t, err, "byte 0x%02X", b)
			assert.Equal(t, string([]rune{'a', rune(b), 'z'}), got, "byte 0x%02X", b)
		}
	})

	t.Run("latin1 fallback", func(t *testing.T) {
		got, err := DecodeLine([]byte("caf\xe9"), charmap.ISO8859_1)
		require.NoError(t, err)
		assert.Equal(t, "café", got)
	})
}

func TestSplitFields(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitFields(" a ;b; c", ";"))
	assert.Equal(t, []string{"a", "b"}, SplitFields("a,b", ""))
	assert.Equal(t, []string{"a\tb"}, SplitFields("a\tb", ","))
}

func TestLookupFallback(t *testing.T) {
	cm, err := LookupFallback("")
	require.NoError(t, err)
	assert.Equal(t, charmap.Windows1252, cm)

	cm, err = LookupFallback("ISO-8859-15")
	require.NoError(t, err)
	assert.Equal(t, charmap.ISO8859_15, cm)

	_, err = LookupFallback("ebcdic")
	assert.Error(t, err)
}
