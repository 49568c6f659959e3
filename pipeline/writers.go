package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/aluiziolira/go-scrape-reviews/models"
)

// CSVHeader is the column set of exported datasets.
var CSVHeader = []string{
	"Product", "Author", "Rating", "Review", "Date",
	"date_review", "cleaned reviews", "Compound Score", "Sentiment",
}

// CSVWriter writes records to CSV.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	rows   int
	mu     sync.Mutex
}

// NewCSVWriter initialises a CSV writer and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(CSVHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{
		file:   f,
		writer: writer,
	}, nil
}

// Record renders r in CSVHeader order.
func Record(r models.Review) []string {
	return []string{
		r.Product,
		r.Author,
		r.Rating,
		r.Text,
		r.Date,
		r.NormalizedDate,
		r.CleanedText,
		strconv.FormatFloat(r.CompoundScore, 'f', -1, 64),
		string(r.Sentiment),
	}
}

// Write appends reviews to the CSV output.
func (cw *CSVWriter) Write(reviews []models.Review) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, r := range reviews {
		if err := cw.writer.Write(Record(r)); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
		cw.rows++
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// Validate ensures at least one record follows the header.
func (cw *CSVWriter) Validate() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.rows == 0 {
		return fmt.Errorf("csv file has no records")
	}
	return nil
}

// JSONWriter writes newline-delimited JSON records.
type JSONWriter struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	rows    int
	mu      sync.Mutex
}

// NewJSONWriter initialises the JSON writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	return &JSONWriter{
		file:    f,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Write appends reviews in JSONL format.
func (jw *JSONWriter) Write(reviews []models.Review) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for _, r := range reviews {
		if err := jw.encoder.Encode(r); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
		jw.rows++
	}

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}

	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// Validate ensures the JSON file has data.
func (jw *JSONWriter) Validate() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	if jw.rows == 0 {
		return fmt.Errorf("json file has no records")
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
