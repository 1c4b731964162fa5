package ingestion

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/docdex/docdex/core"
)

// Decode extracts plain text from an uploaded file. The format is chosen by
// file extension: txt, md, json, csv, and pdf are supported. Empty input is
// rejected with core.ErrEmptyInput; unsupported or malformed input with
// core.ErrDecode.
func Decode(filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: file is empty", core.ErrEmptyInput)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt", ".md", ".markdown":
		return decodePlain(data)
	case ".json":
		return decodeJSON(data)
	case ".csv":
		return decodeCSV(data)
	case ".pdf":
		return decodePDF(data)
	default:
		return "", fmt.Errorf("%w: unsupported file format %q", core.ErrDecode, ext)
	}
}

func decodePlain(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: file is not valid UTF-8", core.ErrDecode)
	}
	return string(data), nil
}

// jsonDocument is the accepted shape for JSON uploads: an array of records
// each carrying a content field.
type jsonDocument struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func decodeJSON(data []byte) (string, error) {
	var docs []jsonDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrDecode, err)
	}

	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.Content == "" {
			continue
		}
		parts = append(parts, doc.Content)
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: no content records in JSON file", core.ErrDecode)
	}
	return strings.Join(parts, "\n\n"), nil
}

// decodeCSV renders each data row as "header: value" pairs so column names
// stay attached to their values after chunking.
func decodeCSV(data []byte) (string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrDecode, err)
	}

	var lines []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", core.ErrDecode, err)
		}

		pairs := make([]string, 0, len(record))
		for i, value := range record {
			if i < len(header) {
				pairs = append(pairs, header[i]+": "+value)
			} else {
				pairs = append(pairs, value)
			}
		}
		lines = append(lines, strings.Join(pairs, ", "))
	}

	if len(lines) == 0 {
		return "", fmt.Errorf("%w: CSV file has no data rows", core.ErrDecode)
	}
	return strings.Join(lines, "\n"), nil
}

func decodePDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrDecode, err)
	}

	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrDecode, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(content); err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrDecode, err)
	}
	return buf.String(), nil
}
