package main

import (
	"errors"
	"fmt"
	"time"

	"subsync/internal/jobs"

	"github.com/spf13/cobra"
)

const defaultReportDays = 7

func newReportCommand(envFiles *[]string) *cobra.Command {
	var (
		date    string
		from    string
		to      string
		archive bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the daily subscription report",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := reportOptions(date, from, to, time.Now())
			if err != nil {
				return err
			}
			opts.Archive = archive

			ctx := cmd.Context()
			a, err := newApp(ctx, *envFiles)
			if err != nil {
				return err
			}
			defer a.close()

			if archive && a.storage == nil {
				return errors.New("--archive needs MINIO_ENDPOINT")
			}
			if archive {
				if err := a.storage.EnsureBucketExists(ctx); err != nil {
					return fmt.Errorf("report bucket: %w", err)
				}
			}

			result, err := a.reportJob().Run(ctx, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Subscriptions %s to %s\n\n", result.From.Format("2006-01-02"), result.To.Format("2006-01-02"))
			jobs.RenderReportTable(out, result)
			if result.ObjectName != "" {
				fmt.Fprintf(out, "\narchived to %s/%s\n", a.cfg.Minio.Bucket, result.ObjectName)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "single day to report (YYYY-MM-DD)")
	cmd.Flags().StringVar(&from, "from", "", "first day of the range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last day of the range (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&archive, "archive", false, "upload the CSV to the report bucket")
	return cmd
}

// reportOptions resolves the flags into a range. --date wins over
// --from/--to; with no flags the range runs from seven days ago through today.
func reportOptions(date, from, to string, now time.Time) (jobs.ReportOptions, error) {
	if date != "" {
		day, err := jobs.ParseReportDate(date)
		if err != nil {
			return jobs.ReportOptions{}, err
		}
		return jobs.ReportOptions{From: day, To: day}, nil
	}

	opts := jobs.ReportOptions{}
	opts.From, opts.To = jobs.LastDays(now, defaultReportDays+1)
	if to != "" {
		day, err := jobs.ParseReportDate(to)
		if err != nil {
			return jobs.ReportOptions{}, err
		}
		opts.To = day
		if from == "" {
			opts.From = day.AddDate(0, 0, -defaultReportDays)
		}
	}
	if from != "" {
		day, err := jobs.ParseReportDate(from)
		if err != nil {
			return jobs.ReportOptions{}, err
		}
		opts.From = day
	}
	if opts.From.After(opts.To) {
		return jobs.ReportOptions{}, jobs.ErrInvalidReportRange
	}
	return opts, nil
}
