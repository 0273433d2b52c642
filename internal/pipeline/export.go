package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"load-profile-pipeline/internal/model"
	"load-profile-pipeline/pkg/utils"
)

// Export writes the job's tabular artifacts: the summary table as CSV or
// JSON in the per-job output directory, and optionally the tab-delimited
// upload file consumed by the billing database loader.
func (p *Pipeline) Export(jobID string, job model.LoadProfileJobSpec, summaries []model.SummaryRow, samples []model.LoadSample) ([]string, error) {
	format := "csv"
	fileName := "summary.csv"
	if job.Export != nil {
		switch {
		case job.Export.Format != "":
			format = job.Export.Format
		case job.Export.File != "":
			// No explicit format: take it from the file extension.
			if p.Outputs.GetFileType(job.Export.File) == "json" {
				format = "json"
			}
		}
		if job.Export.File != "" {
			fileName = job.Export.File
		} else if format == "json" {
			fileName = "summary.json"
		}
	}

	path, err := p.Outputs.GetOutputFilePath(jobID, fileName)
	if err != nil {
		return nil, err
	}

	switch format {
	case "json":
		err = writeSummaryJSON(path, jobID, summaries)
	default:
		err = writeSummaryCSV(path, summaries)
	}
	if err != nil {
		return nil, err
	}
	paths := []string{path}

	if job.Export != nil && job.Export.UploadFile {
		uploadPath, err := p.writeUploadFile(samples)
		if err != nil {
			return nil, err
		}
		paths = append(paths, uploadPath)
	}
	return paths, nil
}

func writeSummaryCSV(path string, summaries []model.SummaryRow) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"class", "size_band", "period", "stat", "value", "sample_count"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range summaries {
		record := []string{
			string(row.Class),
			string(row.SizeBand),
			row.Period,
			row.Stat,
			strconv.FormatFloat(row.Value, 'f', -1, 64),
			strconv.Itoa(row.SampleCount),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}

func writeSummaryJSON(path, jobID string, summaries []model.SummaryRow) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := map[string]interface{}{
		"export_info": map[string]interface{}{
			"job_id":      jobID,
			"exported_at": time.Now().UTC(),
			"row_count":   len(summaries),
			"export_type": "summary_rows",
		},
		"data": summaries,
	}
	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// uploadDateLayout matches what the downstream loader expects.
const uploadDateLayout = "01/02/2006"

// writeUploadFile renders samples back into the loader's format: one
// tab-delimited row per (upload code, day) with 24 hourly values, named
// after the first day of data. A file already moved to Archive is never
// overwritten; pick another range or clear the archive first.
func (p *Pipeline) writeUploadFile(samples []model.LoadSample) (string, error) {
	type rowKey struct {
		code string
		day  time.Time
	}
	rows := make(map[rowKey][]float64)
	var firstDay time.Time

	for _, s := range samples {
		info, ok := p.Codes[s.Segment]
		if !ok || info.UploadCode == "" {
			continue // only segments in the code mapping are uploaded
		}
		day := utils.Midnight(s.Timestamp)
		if firstDay.IsZero() || day.Before(firstDay) {
			firstDay = day
		}
		key := rowKey{code: info.UploadCode, day: day}
		vals, ok := rows[key]
		if !ok {
			vals = make([]float64, 24)
			rows[key] = vals
		}
		vals[s.Timestamp.Hour()] = s.KW
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("no samples map to upload codes")
	}

	fileName := fmt.Sprintf("Conectiv_%s.txt", firstDay.Format("20060102"))
	if _, err := os.Stat(p.Outputs.ArchivePath(fileName)); err == nil {
		return "", fmt.Errorf("upload file %s already in Archive, choose an alternative range", fileName)
	}

	keys := make([]rowKey, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].code != keys[j].code {
			return keys[i].code < keys[j].code
		}
		return keys[i].day.Before(keys[j].day)
	})

	if err := os.MkdirAll(p.Outputs.BaseOutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(p.Outputs.BaseOutputDir, fileName)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer file.Close()

	for _, k := range keys {
		fmt.Fprintf(file, "%s\t%s", k.code, k.day.Format(uploadDateLayout))
		for _, v := range rows[k] {
			fmt.Fprintf(file, "\t%.3f", v)
		}
		// trailing empty field kept for the loader's column layout
		fmt.Fprint(file, "\t\n")
	}
	return path, nil
}
