package loader

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bluele/gcache"
	"github.com/jszwec/csvutil"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"tracto-cpk/internal/excel"
	"tracto-cpk/internal/models"
)

// Loader reads route tables and keeps each one for the life of the process.
// Sources are treated as immutable, so entries are never invalidated.
type Loader struct {
	sheet string
	cache gcache.Cache
	group singleflight.Group
	log   *zap.Logger
}

// New returns a Loader reading workbooks from sheet (first sheet when empty).
func New(sheet string, log *zap.Logger) *Loader {
	return &Loader{
		sheet: sheet,
		cache: gcache.New(8).LRU().Build(),
		log:   log,
	}
}

// Load returns the records of the source at path. Concurrent calls for the
// same path share a single read. Each caller gets its own slice.
func (l *Loader) Load(path string) ([]models.RouteRecord, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}

	if v, err := l.cache.Get(key); err == nil {
		l.log.Debug("dataset served from cache", zap.String("source", key))
		return slices.Clone(v.([]models.RouteRecord)), nil
	}

	v, err, _ := l.group.Do(key, func() (interface{}, error) {
		records, err := ReadFile(key, l.sheet)
		if err != nil {
			return nil, err
		}
		if err := l.cache.Set(key, records); err != nil {
			return nil, fmt.Errorf("cache dataset %s: %w", key, err)
		}
		l.log.Info("dataset loaded",
			zap.String("source", key),
			zap.Int("records", len(records)),
		)
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]models.RouteRecord)), nil
}

// ReadFile picks a reader from the file extension.
func ReadFile(path, sheet string) ([]models.RouteRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadWorkbook(path, sheet)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, &LoadError{Source: path, Err: err}
		}
		defer f.Close()
		return ReadCSV(path, f)
	default:
		return nil, &LoadError{Source: path, Err: fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))}
	}
}

// ReadWorkbook reads the route table from an Excel workbook.
func ReadWorkbook(path, sheet string) ([]models.RouteRecord, error) {
	f, err := excel.OpenFile(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	defer f.Close()

	header, rows, err := excel.ReadTable(f, sheet)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[cleanHeader(h)] = i
	}
	if err := checkColumns(path, index); err != nil {
		return nil, err
	}

	records := make([]models.RouteRecord, 0, len(rows))
	for i, row := range rows {
		var raw rawRecord
		for col, dst := range raw.fields() {
			if idx := index[col]; idx < len(row) {
				*dst = row[idx]
			}
		}
		if raw.blank() {
			continue
		}
		rec, err := raw.toRecord(path, i+2)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV reads the route table from CSV text. Comma and semicolon
// delimiters are detected from the header line.
func ReadCSV(source string, r io.Reader) ([]models.RouteRecord, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.Comma = detectDelimiter(br)

	header, err := cr.Read()
	if err != nil {
		return nil, &LoadError{Source: source, Err: fmt.Errorf("read header: %w", err)}
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		header[i] = cleanHeader(h)
		index[header[i]] = i
	}
	if err := checkColumns(source, index); err != nil {
		return nil, err
	}

	dec, err := csvutil.NewDecoder(cr, header...)
	if err != nil {
		return nil, &LoadError{Source: source, Err: fmt.Errorf("decode rows: %w", err)}
	}

	records := []models.RouteRecord{}
	for {
		var raw rawRecord
		if err := dec.Decode(&raw); errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, &LoadError{Source: source, Err: fmt.Errorf("decode rows: %w", err)}
		}
		if raw.blank() {
			continue
		}
		// Row numbers follow the file: skipped empty lines and quoted
		// line breaks both count.
		line, _ := cr.FieldPos(0)
		rec, err := raw.toRecord(source, line)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func detectDelimiter(br *bufio.Reader) rune {
	peek, _ := br.Peek(4096)
	line := peek
	if i := bytes.IndexByte(peek, '\n'); i >= 0 {
		line = peek[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}

func cleanHeader(h string) string {
	return strings.TrimSpace(strings.TrimPrefix(h, string(utf8BOM)))
}

func checkColumns(source string, index map[string]int) error {
	var missing []string
	for _, col := range models.RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &LoadError{Source: source, Column: strings.Join(missing, ", "), Err: ErrMissingColumn}
	}
	return nil
}
