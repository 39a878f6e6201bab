package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/opencare/opencare/internal/config"
	"github.com/opencare/opencare/internal/domain/labresults"
	"github.com/opencare/opencare/internal/labextract"
	"github.com/opencare/opencare/internal/platform/db"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "opencare-server",
		Short:        "OpenCare lab value extraction service",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(migrateCmd())
	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the extraction API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract lab values from OCR text in a file or on stdin",
		Example: `  opencare-server extract --labels NA,K,GLUCOSE --file report.txt
  tesseract scan.png - | opencare-server extract --labels HEMOGLOBIN,WBC`,
		RunE: func(cmd *cobra.Command, args []string) error {
			labels, _ := cmd.Flags().GetStringSlice("labels")
			file, _ := cmd.Flags().GetString("file")
			asFHIR, _ := cmd.Flags().GetBool("fhir")
			verbose, _ := cmd.Flags().GetBool("verbose")

			if len(labels) == 0 {
				return fmt.Errorf("--labels is required")
			}

			var in io.Reader = cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("open input: %w", err)
				}
				defer f.Close()
				in = f
			}
			text, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			logger := zerolog.Nop()
			if verbose {
				logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
					Level(zerolog.DebugLevel).With().Timestamp().Logger()
			}

			svc := labresults.NewService(labextract.New(labextract.WithLogger(logger)), 0, logger)
			resp, err := svc.Extract(cmd.Context(), &labresults.ExtractRequest{
				Text:   string(text),
				Labels: trimLabels(labels),
			})
			if err != nil {
				return err
			}

			var out interface{} = resp
			if asFHIR {
				out = labresults.ToObservationBundle(resp.ExtractedValues, time.Now())
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringSlice("labels", nil, "Comma-separated test labels to look for, in output order")
	cmd.Flags().String("file", "", "Read OCR text from this file instead of stdin")
	cmd.Flags().Bool("fhir", false, "Print a FHIR Bundle of Observations instead of the plain response")
	cmd.Flags().BoolP("verbose", "v", false, "Log how each label was matched to stderr")
	return cmd
}

func trimLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or inspect the audit tables",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := connectForMigrate(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.EnsureAuditSchema(ctx, pool)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := connectForMigrate(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	})

	return cmd
}

func connectForMigrate(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for migrate")
	}
	return db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
}
