package parse

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"load-profile-pipeline/internal/model"
)

// CodeInfo describes one load profile segment: its customer class, size
// band, and the numeric code used in upload files.
type CodeInfo struct {
	Class      model.CustomerClass
	SizeBand   model.SizeBand
	UploadCode string
}

// CodeTable maps provider segment codes (e.g. "MDDGL") to segment metadata.
// Loaded from the code-mapping CSV; segments absent from the table are
// skipped with a warning at parse time.
type CodeTable map[string]CodeInfo

// LoadCodeTable reads the mapping CSV. Expected header:
// segment,class,size_band,upload_code
func LoadCodeTable(path string) (CodeTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open code mapping file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read code mapping file: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("code mapping file %s has no data rows", path)
	}

	table := make(CodeTable, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) != 4 {
			return nil, fmt.Errorf("code mapping row %d: expected 4 columns, got %d", i+2, len(rec))
		}
		class, err := parseClass(rec[1])
		if err != nil {
			return nil, fmt.Errorf("code mapping row %d: %w", i+2, err)
		}
		size, err := parseSizeBand(rec[2])
		if err != nil {
			return nil, fmt.Errorf("code mapping row %d: %w", i+2, err)
		}
		table[strings.TrimSpace(rec[0])] = CodeInfo{
			Class:      class,
			SizeBand:   size,
			UploadCode: strings.TrimSpace(rec[3]),
		}
	}
	return table, nil
}

func parseClass(s string) (model.CustomerClass, error) {
	switch model.CustomerClass(strings.ToLower(strings.TrimSpace(s))) {
	case model.ClassResidential:
		return model.ClassResidential, nil
	case model.ClassCommercial:
		return model.ClassCommercial, nil
	case model.ClassIndustrial:
		return model.ClassIndustrial, nil
	case model.ClassLighting:
		return model.ClassLighting, nil
	}
	return "", fmt.Errorf("unknown customer class %q", s)
}

func parseSizeBand(s string) (model.SizeBand, error) {
	switch model.SizeBand(strings.ToLower(strings.TrimSpace(s))) {
	case model.SizeSmall:
		return model.SizeSmall, nil
	case model.SizeMedium:
		return model.SizeMedium, nil
	case model.SizeLarge:
		return model.SizeLarge, nil
	case model.SizeNone, "":
		return model.SizeNone, nil
	}
	return "", fmt.Errorf("unknown size band %q", s)
}
