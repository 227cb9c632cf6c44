// Package decoder reads delimited text files line by line, tolerating legacy
// single-byte encodings.
//
// Every line is decoded as UTF-8. Byte sequences that are not valid UTF-8 are
// decoded one byte at a time through a fallback charmap (Windows-1252 by
// default), so exports written by older spreadsheet tools still scan.
// A line that cannot be decoded is reported as a *LineError and reading
// resumes at the next line.
package decoder

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const (
	// DefaultDelimiter separates fields within a row
	DefaultDelimiter = ","
	// DefaultMaxLineBytes bounds memory used by a single line
	DefaultMaxLineBytes = 1 << 20
	// DefaultFallback is the fallback encoding name
	DefaultFallback = "windows-1252"

	readBufferSize = 64 * 1024
)

var (
	// ErrLineTooLong is reported for lines longer than Options.MaxLineBytes
	ErrLineTooLong = errors.New("line exceeds maximum length")
	// ErrUndecodable is reported when a byte has no mapping in the fallback charmap
	ErrUndecodable = errors.New("byte has no mapping in fallback encoding")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var fallbacks = map[string]*charmap.Charmap{
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-15":  charmap.ISO8859_15,
}

// LookupFallback returns the charmap registered under name (case-insensitive).
func LookupFallback(name string) (*charmap.Charmap, error) {
	if name == "" {
		name = DefaultFallback
	}
	cm, ok := fallbacks[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unsupported fallback encoding %q", name)
	}
	return cm, nil
}

// LineError reports a line that could not be read or decoded.
type LineError struct {
	Path string
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("error reading line %d of %s: %v", e.Line, e.Path, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Options configures a Reader
type Options struct {
	// Delimiter separates fields (default ",")
	Delimiter string
	// MaxLineBytes is the longest line accepted (default 1 MiB)
	MaxLineBytes int
	// Fallback decodes bytes that are not valid UTF-8 (default Windows-1252)
	Fallback *charmap.Charmap
}

func (o Options) withDefaults() Options {
	if o.Delimiter == "" {
		o.Delimiter = DefaultDelimiter
	}
	if o.MaxLineBytes <= 0 {
		o.MaxLineBytes = DefaultMaxLineBytes
	}
	if o.Fallback == nil {
		o.Fallback = charmap.Windows1252
	}
	return o
}

// Row is one decoded line split into trimmed fields.
type Row struct {
	Index  int // 1-based line number
	Text   string
	Fields []string
}

// Reader produces decoded rows from a single file.
type Reader struct {
	path string
	file *os.File
	br   *bufio.Reader
	opts Options
	buf  []byte
}

// Open opens path for reading.
func Open(path string, opts Options) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return NewReader(path, file, opts), nil
}

// NewReader wraps an already-open file. The Reader takes ownership of file.
func NewReader(path string, file *os.File, opts Options) *Reader {
	return &Reader{
		path: path,
		file: file,
		br:   bufio.NewReaderSize(file, readBufferSize),
		opts: opts.withDefaults(),
	}
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Rows returns a lazy sequence of rows in file order.
// Decode failures yield a *LineError and the sequence continues with the
// next line. A read failure yields a *LineError and ends the sequence.
func (r *Reader) Rows() iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		index := 0
		for {
			raw, tooLong, readErr := r.readLine()
			if readErr != nil && readErr != io.EOF {
				yield(Row{}, &LineError{Path: r.path, Line: index + 1, Err: readErr})
				return
			}
			if readErr == io.EOF && len(raw) == 0 && !tooLong {
				return
			}

			index++
			if tooLong {
				if !yield(Row{}, &LineError{Path: r.path, Line: index, Err: ErrLineTooLong}) {
					return
				}
			} else {
				if index == 1 {
					raw = bytes.TrimPrefix(raw, utf8BOM)
				}
				text, err := DecodeLine(raw, r.opts.Fallback)
				if err != nil {
					if !yield(Row{}, &LineError{Path: r.path, Line: index, Err: err}) {
						return
					}
				} else {
					row := Row{
						Index:  index,
						Text:   text,
						Fields: SplitFields(text, r.opts.Delimiter),
					}
					if !yield(row, nil) {
						return
					}
				}
			}

			if readErr == io.EOF {
				return
			}
		}
	}
}

// readLine reads up to and excluding the next newline. Lines longer than
// MaxLineBytes are consumed and discarded with tooLong set.
func (r *Reader) readLine() (line []byte, tooLong bool, err error) {
	r.buf = r.buf[:0]
	for {
		chunk, err := r.br.ReadSlice('\n')
		if !tooLong {
			if len(r.buf)+len(chunk) > r.opts.MaxLineBytes+2 {
				tooLong = true
				r.buf = r.buf[:0]
			} else {
				r.buf = append(r.buf, chunk...)
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		line = bytes.TrimSuffix(r.buf, []byte("\n"))
		line = bytes.TrimSuffix(line, []byte("\r"))
		return line, tooLong, err
	}
}

// DecodeLine converts raw bytes to text. Valid UTF-8 is kept as is; each
// invalid byte is mapped through fallback. Bytes in 0x80-0x9F that the
// charmap leaves undefined (0x81, 0x8D, 0x8F, 0x90, 0x9D in Windows-1252)
// decode to the C1 control of the same value, as WHATWG decoders do.
func DecodeLine(raw []byte, fallback *charmap.Charmap) (string, error) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	if fallback == nil {
		fallback = charmap.Windows1252
	}

	var sb strings.Builder
	sb.Grow(len(raw) + len(raw)/4)
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		if r == utf8.RuneError && size == 1 {
			r = fallback.DecodeByte(raw[0])
			if r == utf8.RuneError && raw[0] >= 0x80 && raw[0] <= 0x9F {
				r = rune(raw[0])
			}
			if r == utf8.RuneError {
				return "", fmt.Errorf("%w: 0x%02X", ErrUndecodable, raw[0])
			}
		}
		sb.WriteRune(r)
		raw = raw[size:]
	}
	return sb.String(), nil
}

// SplitFields splits line on delim and trims surrounding whitespace from
// every field.
func SplitFields(line, delim string) []string {
	if delim == "" {
		delim = DefaultDelimiter
	}
	fields := strings.Split(line, delim)
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}
