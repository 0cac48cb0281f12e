package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"payroll-auditor/core/audit"
	"payroll-auditor/core/config"
	"payroll-auditor/core/logger"
	"payroll-auditor/core/parser"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the audit command
	formatAFlag   string
	formatBFlag   string
	toleranceFlag string
	thresholdFlag float64
	noFuzzyFlag   bool
	minConfFlag   float64
	outputFlag    string
)

// auditCmd compares two payroll files and prints the discrepancy report.
var auditCmd = &cobra.Command{
	Use:   "audit <file-a> <file-b>",
	Short: "Compare two payroll files and report discrepancies",
	Long: `Compare two payroll files and report every numeric or identity
discrepancy with a severity and an overall risk classification.

Formats are inferred from the file extensions (.xlsx, .xls, .pdf, .csv,
.json) unless overridden with --format-a / --format-b.

Examples:
  # Compare an Excel export against a CSV ledger
  payroll-auditor audit previous.xlsx current.csv

  # Tighten the monetary tolerance and save the full report
  payroll-auditor audit a.csv b.csv --tolerance 0.001 --output report.json

  # Disable fuzzy name matching
  payroll-auditor audit a.json b.json --no-fuzzy`,
	Args: cobra.ExactArgs(2),
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().StringVar(&formatAFlag, "format-a", "", "Declared format of the first file (spreadsheet|delimited|structured|document)")
	auditCmd.Flags().StringVar(&formatBFlag, "format-b", "", "Declared format of the second file")
	auditCmd.Flags().StringVar(&toleranceFlag, "tolerance", "", "Inclusive monetary tolerance (default 0.01)")
	auditCmd.Flags().Float64Var(&thresholdFlag, "threshold", 0.8, "Fuzzy name match threshold in [0,1]")
	auditCmd.Flags().BoolVar(&noFuzzyFlag, "no-fuzzy", false, "Disable fuzzy name matching")
	auditCmd.Flags().Float64Var(&minConfFlag, "min-confidence", 0.5, "Minimum document-extraction confidence in [0,1]")
	auditCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Write the full result JSON to this file")

	RootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfgFile, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	l, err := logger.New(&cfgFile.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Engine configuration: env defaults overridden by flags
	cfg, err := cfgFile.Engine.Config()
	if err != nil {
		return fmt.Errorf("invalid engine configuration: %w", err)
	}
	if toleranceFlag != "" {
		tol, err := decimal.NewFromString(toleranceFlag)
		if err != nil || tol.IsNegative() {
			return fmt.Errorf("invalid --tolerance %q: expected a non-negative decimal", toleranceFlag)
		}
		cfg.EarningsTolerance = tol
	}
	if thresholdFlag < 0 || thresholdFlag > 1 {
		return fmt.Errorf("invalid --threshold %v: expected a value in [0,1]", thresholdFlag)
	}
	cfg.NameThreshold = thresholdFlag
	cfg.FuzzyMatching = !noFuzzyFlag
	if minConfFlag < 0 || minConfFlag > 1 {
		return fmt.Errorf("invalid --min-confidence %v: expected a value in [0,1]", minConfFlag)
	}
	cfg.MinExtractionConfidence = minConfFlag

	pathA, pathB := args[0], args[1]
	formatA, err := resolveFormat(pathA, formatAFlag)
	if err != nil {
		return err
	}
	formatB, err := resolveFormat(pathB, formatBFlag)
	if err != nil {
		return err
	}

	dataA, err := os.ReadFile(pathA)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", pathA, err)
	}
	dataB, err := os.ReadFile(pathB)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", pathB, err)
	}

	l.Info("Comparing payroll files",
		zap.String("file_a", pathA),
		zap.String("file_b", pathB),
		zap.String("format_a", string(formatA)),
		zap.String("format_b", string(formatB)),
	)

	result, err := audit.Run(dataA, formatA, dataB, formatB, cfg)
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}

	printAuditReport(l, result)

	if outputFlag != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		if err := os.WriteFile(outputFlag, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", outputFlag, err)
		}
		l.Info("Full report written", zap.String("path", outputFlag))
	}

	return nil
}

// resolveFormat uses the explicit flag when given, else the file extension.
func resolveFormat(path, flag string) (parser.Format, error) {
	if flag != "" {
		return parser.ParseFormat(flag)
	}
	format, ok := parser.FormatForExtension(filepath.Ext(path))
	if !ok {
		return "", fmt.Errorf("cannot infer format of %s; use --format-a/--format-b", path)
	}
	return format, nil
}

// printAuditReport prints a formatted comparison report using logger.
func printAuditReport(l *zap.Logger, result *audit.Result) {
	s := result.Summary

	l.Info("Comparison report",
		zap.Int("total_employees", s.TotalEmployees),
		zap.Int("matched_pairs", s.MatchedPairs),
		zap.Int("unmatched_a", s.UnmatchedA),
		zap.Int("unmatched_b", s.UnmatchedB),
		zap.Int("low", s.LowCount),
		zap.Int("medium", s.MediumCount),
		zap.Int("high", s.HighCount),
		zap.Int("critical", s.CriticalCount),
		zap.String("risk", string(s.Risk)),
	)

	if len(result.Warnings) > 0 {
		maxShow := 5
		if len(result.Warnings) < maxShow {
			maxShow = len(result.Warnings)
		}
		for i := 0; i < maxShow; i++ {
			w := result.Warnings[i]
			l.Warn("Processing warning",
				zap.String("file", w.File),
				zap.String("stage", w.Stage),
				zap.Int("row", w.Row),
				zap.String("message", w.Message),
			)
		}
		if len(result.Warnings) > maxShow {
			l.Warn("Additional warnings not shown", zap.Int("count", len(result.Warnings)-maxShow))
		}
	}

	if len(result.Discrepancies) > 0 {
		// Show sample of discrepancies (max 10 for logger)
		maxShow := 10
		if len(result.Discrepancies) < maxShow {
			maxShow = len(result.Discrepancies)
		}
		for i := 0; i < maxShow; i++ {
			d := result.Discrepancies[i]
			fields := []zap.Field{
				zap.String("employee", d.Employee),
				zap.String("field", d.Field),
				zap.String("kind", string(d.Kind)),
				zap.String("severity", string(d.Severity)),
			}
			if d.ValueA != nil {
				fields = append(fields, zap.String("value_a", d.ValueA.String()))
			}
			if d.ValueB != nil {
				fields = append(fields, zap.String("value_b", d.ValueB.String()))
			}
			if d.Difference != nil {
				fields = append(fields, zap.String("difference", d.Difference.String()))
			}
			l.Info("Discrepancy", fields...)
		}
		if len(result.Discrepancies) > maxShow {
			l.Info("Additional discrepancies not shown", zap.Int("count", len(result.Discrepancies)-maxShow))
		}
	}
}
