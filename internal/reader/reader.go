// Package reader turns raw delimited source files into parsed tables,
// trying a fixed priority list of encodings until one parses.
package reader

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/vvka-141/dsload/pkg/dsload"
)

// Delimiter is the field separator used by all source files.
const Delimiter = ';'

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
)

// candidate is one entry in the encoding priority list.
type candidate struct {
	name   string
	decode func(data []byte) ([]byte, error)
}

// Encoding fallback order. Files come from several upstream Windows
// systems, so the cyrillic codepage sits right behind UTF-8.
var candidates = []candidate{
	{"utf-8-sig", decodeUTF8Sig},
	{"windows-1251", decodeCharmapFunc(charmap.Windows1251)},
	{"latin-1", decodeCharmapFunc(charmap.ISO8859_1)},
	{"utf-16-le", decodeUTF16LE},
}

// Reader parses delimited source files with encoding fallback.
type Reader struct {
	logger dsload.Logger
}

// New creates a Reader. Panics if logger is nil.
func New(logger dsload.Logger) *Reader {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Reader{logger: logger}
}

// Read parses the file at path, trying each encoding in priority order.
// The first encoding whose decode and parse both succeed wins; the
// winning encoding is recorded on the returned ParsedTable. If no
// encoding works the error wraps dsload.ErrUnreadableFile and
// enumerates every attempt.
func (r *Reader) Read(path string) (*dsload.ParsedTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	for _, c := range candidates {
		decoded, err := c.decode(data)
		if err != nil {
			r.logger.Verbose("could not decode %s as %s: %v", path, c.name, err)
			continue
		}

		table, err := parseDelimited(decoded)
		if err != nil {
			r.logger.Verbose("could not parse %s as %s: %v", path, c.name, err)
			continue
		}

		table.Encoding = c.name
		r.logger.Info("read %s with encoding %s (%d rows)", path, c.name, len(table.Rows))
		return table, nil
	}

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.name
	}
	return nil, fmt.Errorf("no encoding could read %s (tried: %s): %w",
		path, strings.Join(names, ", "), dsload.ErrUnreadableFile)
}

func decodeUTF8Sig(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("invalid UTF-8 byte sequence")
	}
	return data, nil
}

func decodeCharmapFunc(cm *charmap.Charmap) func([]byte) ([]byte, error) {
	return func(data []byte) ([]byte, error) {
		return cm.NewDecoder().Bytes(data)
	}
}

func decodeUTF16LE(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf16LEBOM)
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("odd byte length %d for UTF-16", len(data))
	}
	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	return dec.Bytes(data)
}

// parseDelimited splits decoded text into header and row tuples.
// The first record sets the expected field count; ragged rows are a
// parse failure, which is what pushes mis-decoded files to the next
// encoding in the priority list.
func parseDelimited(data []byte) (*dsload.ParsedTable, error) {
	// A NUL in decoded text means the bytes were decoded with the wrong
	// encoding (typically UTF-16 read as a single-byte codepage).
	if bytes.IndexByte(data, 0x00) != -1 {
		return nil, fmt.Errorf("NUL byte in decoded text")
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = Delimiter

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no columns to parse")
	}

	table := &dsload.ParsedTable{
		Columns: records[0],
		Rows:    make([][]any, 0, len(records)-1),
	}
	for _, rec := range records[1:] {
		row := make([]any, len(rec))
		for i, cell := range rec {
			row[i] = cell
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}
