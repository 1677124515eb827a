package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bryanwahyu/enginesound/internal/domain/diagnosis"
)

// fileReport is one analyzed file in CLI output.
type fileReport struct {
	Path      string                   `json:"path"`
	Result    diagnosis.AnalysisResult `json:"result"`
	Stage     string                   `json:"failed_stage,omitempty"`
	Error     string                   `json:"error,omitempty"`
	ElapsedMS int64                    `json:"elapsed_ms"`
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <file>...",
		Short: "Run the damage pipeline on local recordings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := ctx.pipeline()
			if err != nil {
				return err
			}

			reports := make([]fileReport, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				out := pipeline.Run(cmd.Context(), data)
				out.Result.FileName = filepath.Base(path)
				r := fileReport{
					Path:      path,
					Result:    out.Result,
					Stage:     string(out.Stage),
					ElapsedMS: out.Elapsed.Milliseconds(),
				}
				if out.Err != nil {
					r.Error = out.Err.Error()
				}
				reports = append(reports, r)
			}

			if ctx.wantJSON(cmd) {
				return writeJSON(cmd, reports)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderReports(reports))
			return nil
		},
	}
}

func renderReports(reports []fileReport) string {
	headers := []string{"File", "Size", "Damage", "Confidence", "Centroid Hz", "Duration", "Note"}
	aligns := []columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft}
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		res := r.Result
		centroid, duration := "-", "-"
		if !res.Features.Empty() {
			centroid = fmt.Sprintf("%.0f", res.Features.SpectralCentroidMean)
			duration = fmt.Sprintf("%.2fs", res.Features.Duration)
		}
		note := ""
		if r.Error != "" {
			note = r.Stage + ": " + r.Error
		}
		rows = append(rows, []string{
			res.FileName,
			humanize.Bytes(uint64(res.FileSize)),
			string(res.Verdict.Category),
			fmt.Sprintf("%.0f%%", res.Verdict.Confidence*100),
			centroid,
			duration,
			note,
		})
	}
	return renderTable(headers, rows, aligns)
}
