package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kasw/orgtrace"
	"github.com/kasw/orgtrace/internal/cli"
)

// ingestRow is one JSON record of the employment file.
type ingestRow struct {
	RawName       string `json:"raw_name"`
	CleanName     string `json:"clean_name"`
	LowerName     string `json:"lower_name"`
	Rank          string `json:"rank"`
	Org           string `json:"org"`
	URL           string `json:"url"`
	ParentOrgName string `json:"parent_org_name"`
	ParentOrgURL  string `json:"parent_org_url"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	TenureDays    *int   `json:"tenure_days"`
	Tel           string `json:"tel"`
	Email         string `json:"email"`
	Type          string `json:"type"`
}

var ingestBatchSize int

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Disambiguate and load employment records",
	Long: `Load an employment records file (JSON array). Records are grouped by
name, split into identity clusters, and written one transaction per
cluster. Large files are processed in batches; records sharing a name
should sit in the same batch for disambiguation to see them together.`,
	Example: `  orgtrace ingest employment.json
  orgtrace ingest --batch 500 employment.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return cli.DataError("reading records file", err)
		}
		var rows []ingestRow
		if err := json.Unmarshal(data, &rows); err != nil {
			return cli.DataError("parsing records file", err)
		}

		records := make([]orgtrace.EmploymentRecord, len(rows))
		for i, r := range rows {
			start, err := time.Parse("2006-01-02", r.StartDate)
			if err != nil {
				return cli.DataError(fmt.Sprintf("record %d: bad start_date %q", i, r.StartDate), err)
			}
			end, err := time.Parse("2006-01-02", r.EndDate)
			if err != nil {
				return cli.DataError(fmt.Sprintf("record %d: bad end_date %q", i, r.EndDate), err)
			}
			records[i] = orgtrace.EmploymentRecord{
				RawName:       r.RawName,
				CleanName:     r.CleanName,
				LowerName:     r.LowerName,
				Rank:          r.Rank,
				Org:           r.Org,
				URL:           r.URL,
				ParentOrgName: r.ParentOrgName,
				ParentOrgURL:  r.ParentOrgURL,
				StartDate:     start,
				EndDate:       end,
				TenureDays:    r.TenureDays,
				Tel:           r.Tel,
				Email:         r.Email,
				Type:          r.Type,
			}
		}

		log := newLogger()
		defer func() { _ = log.Sync() }()

		ctx := context.Background()
		h, err := openHandle(ctx, log)
		if err != nil {
			return err
		}
		defer h.Close()

		batch := ingestBatchSize
		if batch <= 0 {
			batch = cfg.Ingest.BatchSize
		}
		if batch <= 0 || batch > len(records) {
			batch = len(records)
		}

		var total orgtrace.IngestResult
		for start := 0; start < len(records); start += batch {
			end := start + batch
			if end > len(records) {
				end = len(records)
			}
			res, err := h.BulkInsertRecords(ctx, records[start:end])
			if err != nil {
				return cli.GeneralError("ingesting records", err)
			}
			total.TotalProcessed += res.TotalProcessed
			total.Successful += res.Successful
			total.Failed += res.Failed
		}

		fmt.Printf("Processed: %d, Successful: %d, Failed: %d\n",
			total.TotalProcessed, total.Successful, total.Failed)
		return nil
	},
}

func init() {
	ingestCmd.Flags().IntVar(&ingestBatchSize, "batch", 0, "records per batch (default: ingest.batch_size from config)")
}
