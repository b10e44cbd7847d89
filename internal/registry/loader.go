package registry

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// Load reads a registry file. The format is detected from the extension:
// .yaml/.yml, .jsonl/.json (one record per line), or .parquet.
func Load(path string) (*Registry, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var (
		records []ProductRecord
		err     error
	)
	switch ext {
	case ".yaml", ".yml":
		records, err = loadYAML(path)
	case ".jsonl", ".json":
		records, err = loadJSONL(path)
	case ".parquet":
		records, err = loadParquet(path)
	default:
		return nil, fmt.Errorf("unsupported registry format: %s (supported: .yaml, .jsonl, .parquet)", ext)
	}
	if err != nil {
		return nil, err
	}

	reg := New()
	for _, record := range records {
		if err := reg.Register(record); err != nil {
			return nil, fmt.Errorf("invalid record in %s: %w", path, err)
		}
	}

	slog.Info("Loaded product registry", "path", path, "products", reg.Len())
	return reg, nil
}

func loadYAML(path string) ([]ProductRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}

	var file struct {
		Products []ProductRecord `yaml:"products"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse registry YAML: %w", err)
	}
	return file.Products, nil
}

func loadJSONL(path string) ([]ProductRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry file: %w", err)
	}
	defer file.Close()

	var records []ProductRecord
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record ProductRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading registry: %w", err)
	}
	return records, nil
}

func loadParquet(path string) ([]ProductRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet registry opened", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[ProductRecord](pf)
	defer reader.Close()

	var records []ProductRecord
	rows := make([]ProductRecord, 64)
	for {
		n, err := reader.Read(rows)
		if n > 0 {
			records = append(records, rows[:n]...)
		}
		if err != nil {
			break
		}
	}
	return records, nil
}

// SaveYAML writes the registry to a YAML file, creating parent directories
// as needed. Used by the register subcommand.
func SaveYAML(reg *Registry, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create registry directory: %w", err)
		}
	}

	var file struct {
		Products []ProductRecord `yaml:"products"`
	}
	for _, name := range reg.Names() {
		record, _ := reg.Lookup(name)
		file.Products = append(file.Products, record)
	}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}

	slog.Info("Saved product registry", "path", path, "products", reg.Len())
	return nil
}
