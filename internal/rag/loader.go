package rag

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	logx "github.com/wayfarer-planner/server/pkg/logger"
)

type fileParser func(data []byte) (string, error)

var parsers = map[string]fileParser{
	".txt":  parsePlain,
	".md":   parsePlain,
	".json": parseJSON,
	".yaml": parseYAML,
	".yml":  parseYAML,
	".csv":  parseCSV,
}

// SupportedExtensions lists the file types LoadFolder reads.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(parsers))
	for ext := range parsers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// LoadFolder reads every supported file under dir, in lexical path order.
// Unsupported files are skipped; a file that fails to parse is an error.
func LoadFolder(dir string) ([]Document, error) {
	var docs []Document
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		parse, ok := parsers[ext]
		if !ok {
			logx.Debug().Str("path", path).Msg("skipping unsupported file")
			return nil
		}
		doc, err := loadFile(path, ext, parse)
		if err != nil {
			return err
		}
		if strings.TrimSpace(doc.Content) != "" {
			docs = append(docs, doc)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load documents from %s: %w", dir, err)
	}
	logx.Info().Str("dir", dir).Int("documents", len(docs)).Msg("documents loaded")
	return docs, nil
}

func loadFile(path, ext string, parse fileParser) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	content, err := parse(data)
	if err != nil {
		return Document{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return Document{Content: content, Source: filepath.Base(path), FileType: strings.TrimPrefix(ext, ".")}, nil
}

func parsePlain(data []byte) (string, error) {
	return string(data), nil
}

func parseJSON(data []byte) (string, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return "", err
	}
	return flatten(v), nil
}

func parseYAML(data []byte) (string, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return "", err
	}
	return flatten(v), nil
}

// parseCSV renders each row as "header: value" pairs, one row per line.
func parseCSV(data []byte) (string, error) {
	r := csv.NewReader(strings.NewReader(string(data)))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	header := rows[0]
	var b strings.Builder
	for _, row := range rows[1:] {
		fields := make([]string, 0, len(row))
		for i, cell := range row {
			name := fmt.Sprintf("column%d", i+1)
			if i < len(header) && header[i] != "" {
				name = header[i]
			}
			fields = append(fields, name+": "+cell)
		}
		b.WriteString(strings.Join(fields, ", "))
		b.WriteString("\n")
	}
	return b.String(), nil
}

// flatten renders nested maps and lists as "path: value" lines so that each
// line is meaningful on its own once chunked.
func flatten(v any) string {
	var lines []string
	flattenInto("", v, &lines)
	return strings.Join(lines, "\n")
}

func flattenInto(prefix string, v any, lines *[]string) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flattenInto(joinPath(prefix, k), t[k], lines)
		}
	case []any:
		for i, item := range t {
			flattenInto(joinPath(prefix, fmt.Sprint(i)), item, lines)
		}
	case nil:
	default:
		if prefix == "" {
			*lines = append(*lines, fmt.Sprint(t))
			return
		}
		*lines = append(*lines, fmt.Sprintf("%s: %v", prefix, t))
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
