package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aluiziolira/go-scrape-reviews/models"
)

// DualWriter outputs the same records as CSV and JSONL.
type DualWriter struct {
	csvWriter  *CSVWriter
	jsonWriter *JSONWriter
	mu         sync.Mutex
}

// NewDualWriter creates both output files.
func NewDualWriter(csvFilename, jsonFilename string) (*DualWriter, error) {
	csvWriter, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, fmt.Errorf("create csv writer: %w", err)
	}

	jsonWriter, err := NewJSONWriter(jsonFilename)
	if err != nil {
		csvWriter.Close()
		return nil, fmt.Errorf("create json writer: %w", err)
	}

	return &DualWriter{
		csvWriter:  csvWriter,
		jsonWriter: jsonWriter,
	}, nil
}

// DualJSONName derives the JSONL path paired with a CSV path.
func DualJSONName(csvFilename string) string {
	return strings.TrimSuffix(csvFilename, ".csv") + ".jsonl"
}

func (dw *DualWriter) Write(reviews []models.Review) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if err := dw.csvWriter.Write(reviews); err != nil {
		return fmt.Errorf("csv write: %w", err)
	}
	if err := dw.jsonWriter.Write(reviews); err != nil {
		return fmt.Errorf("json write: %w", err)
	}
	return nil
}

// Close closes both writers
func (dw *DualWriter) Close() error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	var errs []error
	if err := dw.csvWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("csv close: %w", err))
	}
	if err := dw.jsonWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("json close: %w", err))
	}
	return errors.Join(errs...)
}

func (dw *DualWriter) Validate() error {
	var errs []error
	if err := dw.csvWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("csv validation: %w", err))
	}
	if err := dw.jsonWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("json validation: %w", err))
	}
	return errors.Join(errs...)
}
