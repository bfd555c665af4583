package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hamed0406/smoketestexporter/internal/domain"
)

var (
	apiBase string
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "smoketest-cli [service]",
	Short:         "Show the latest smoketest results of a running exporter",
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		var results []domain.CheckResult
		if len(args) == 1 {
			var r domain.CheckResult
			if err := fetch(ctx, "/api/results/"+args[0], &r); err != nil {
				return err
			}
			results = append(results, r)
		} else if err := fetch(ctx, "/api/results", &results); err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SERVICE\tOUTCOME\tDURATION_MS\tCHECKED_AT\tMESSAGE")
		for _, r := range results {
			checked := "-"
			if !r.CheckedAt.IsZero() {
				checked = r.CheckedAt.Format(time.RFC3339)
			}
			fmt.Fprintf(tw, "%s\t%s\t%g\t%s\t%s\n", r.Service, r.Outcome, r.DurationMS, checked, oneLine(r.Message))
		}
		return tw.Flush()
	},
}

func init() {
	def := os.Getenv("API_BASE")
	if def == "" {
		def = "http://localhost:8000"
	}
	rootCmd.Flags().StringVar(&apiBase, "api", def, "exporter base URL")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

func fetch(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(apiBase, "/")+path, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("contacting exporter: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("exporter returned status: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
