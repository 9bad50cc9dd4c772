package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"statuspage/app/internal/aggregator"
	"statuspage/app/internal/handlers"
	"statuspage/app/internal/logger"
	"statuspage/app/internal/uptime"
)

func newAggregateCmd() *cobra.Command {
	var (
		file   string
		key    string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Print the 30-day summary of every service, or of one local log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			opts := uptime.ParseOptions{Strict: cfg.StrictParse}

			var results []aggregator.Result
			if file != "" {
				r, err := aggregateFile(file, key, time.Now(), opts)
				if err != nil {
					return err
				}
				results = []aggregator.Result{r}
			} else {
				p, err := buildPipeline(cfg, nil, logger.Get())
				if err != nil {
					return err
				}
				defer p.Close()
				results, err = p.Aggregator.Run(cmd.Context())
				if err != nil {
					return err
				}
				if key != "" {
					results = filterKey(results, key)
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(handlers.StatusResponse{Status: "success", Data: results})
			}
			return printTable(out, results)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "summarize a local TIMESTAMP,RESULT log instead of the registry")
	cmd.Flags().StringVar(&key, "key", "", "service key (label for --file, filter otherwise)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the /api/status JSON body")
	return cmd
}

// aggregateFile summarizes one log file. The key defaults to the file name
// without its "_report.log" suffix.
func aggregateFile(path, key string, now time.Time, opts uptime.ParseOptions) (aggregator.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return aggregator.Result{}, fmt.Errorf("read log: %w", err)
	}
	if key == "" {
		key = strings.TrimSuffix(filepath.Base(path), "_report.log")
	}
	summary, stats, err := uptime.Aggregate(string(data), now, opts)
	if err != nil {
		return aggregator.Result{}, err
	}
	if stats.Malformed > 0 {
		logger.Warn().Str("file", path).Int("malformed", stats.Malformed).Msg("skipped malformed log lines")
	}
	return aggregator.Result{Key: key, URL: path, Summary: summary}, nil
}

func filterKey(results []aggregator.Result, key string) []aggregator.Result {
	for _, r := range results {
		if r.Key == key {
			return []aggregator.Result{r}
		}
	}
	return []aggregator.Result{}
}

// dayGlyphs draws the window oldest-first so today is the right-most column.
func dayGlyphs(s uptime.Summary) string {
	var b strings.Builder
	for i := uptime.WindowDays - 1; i >= 0; i-- {
		switch uptime.DayStatus(s.Days[i]) {
		case uptime.StatusSuccess:
			b.WriteByte('#')
		case uptime.StatusPartial:
			b.WriteByte('~')
		case uptime.StatusFailure:
			b.WriteByte('x')
		default:
			b.WriteByte('.')
		}
	}
	return b.String()
}

func printTable(w io.Writer, results []aggregator.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVICE\tUPTIME\tTODAY\tLAST RECORD\t30 DAYS")
	for _, r := range results {
		last := "never"
		if !r.Summary.Last.IsZero() {
			last = humanize.Time(r.Summary.Last)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.Key,
			r.Summary.UpTime,
			uptime.StatusText(uptime.DayStatus(r.Summary.Days[0])),
			last,
			dayGlyphs(r.Summary),
		)
	}
	return tw.Flush()
}
