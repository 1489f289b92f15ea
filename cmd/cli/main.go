package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/yourusername/mediabot-go/internal/domain"
	"github.com/yourusername/mediabot-go/pkg/logger"
)

func newRootCmd() *cobra.Command {
	var serverURL string

	rootCmd := &cobra.Command{
		Use:           "mediabot-cli",
		Short:         "mediabot CLI - inspect requests and logs of a running bot",
		Long:          `A command-line interface for the mediabot admin API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")

	client := func() *apiClient { return newAPIClient(serverURL) }

	rootCmd.AddCommand(newListCmd(client))
	rootCmd.AddCommand(newGetCmd(client))
	rootCmd.AddCommand(newStatsCmd(client))
	rootCmd.AddCommand(newLogsCmd(client))
	rootCmd.AddCommand(newHealthCmd(client))
	return rootCmd
}

func newListCmd(client func() *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List download requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			for _, name := range []string{"state", "kind", "platform"} {
				if v, _ := cmd.Flags().GetString(name); v != "" {
					query.Set(name, v)
				}
			}
			if chatID, _ := cmd.Flags().GetInt64("chat"); chatID != 0 {
				query.Set("chat_id", strconv.FormatInt(chatID, 10))
			}
			if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}

			var reqs []domain.DownloadRequest
			if err := client().get("/api/v1/requests", query, &reqs); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATE\tKIND\tPLATFORM\tURL\tCREATED")
			for _, r := range reqs {
				kind := string(r.Kind)
				if r.Fallback {
					kind += "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					truncate(r.ID, 8),
					r.State,
					kind,
					r.Platform,
					truncate(r.SourceURL, 40),
					r.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringP("state", "s", "", "Filter by state")
	cmd.Flags().StringP("kind", "k", "", "Filter by kind (audio, video)")
	cmd.Flags().StringP("platform", "p", "", "Filter by platform (youtube, vk)")
	cmd.Flags().Int64("chat", 0, "Filter by chat id")
	cmd.Flags().IntP("limit", "n", 0, "Maximum number of requests")
	return cmd
}

func newGetCmd(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "get [id]",
		Short: "Get request details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r domain.DownloadRequest
			if err := client().get("/api/v1/requests/"+url.PathEscape(args[0]), nil, &r); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Request Details:\n")
			fmt.Fprintf(out, "  ID:       %s\n", r.ID)
			fmt.Fprintf(out, "  URL:      %s\n", r.SourceURL)
			fmt.Fprintf(out, "  Platform: %s\n", r.Platform)
			fmt.Fprintf(out, "  Kind:     %s\n", r.Kind)
			fmt.Fprintf(out, "  State:    %s\n", r.State)
			fmt.Fprintf(out, "  Chat:     %d\n", r.ChatID)
			fmt.Fprintf(out, "  Created:  %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
			if r.ProbedTitle != "" {
				fmt.Fprintf(out, "  Title:    %s\n", r.ProbedTitle)
			}
			if r.Fallback {
				fmt.Fprintf(out, "  Fallback: delivered as video\n")
			}
			if r.ErrorMessage != "" {
				fmt.Fprintf(out, "  Error:    %s\n", r.ErrorMessage)
			}
			return nil
		},
	}
}

func newStatsCmd(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show request statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			var stats domain.RequestStats
			if err := client().get("/api/v1/requests/stats", nil, &stats); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Request Statistics:")
			fmt.Fprintf(out, "  Total:      %d\n", stats.Total)
			fmt.Fprintf(out, "  In flight:  %d\n", stats.InFlight)
			fmt.Fprintf(out, "  Done:       %d\n", stats.Done)
			fmt.Fprintf(out, "  Failed:     %d\n", stats.Failed)
			fmt.Fprintf(out, "  Cancelled:  %d\n", stats.Cancelled)
			fmt.Fprintf(out, "  Fallbacks:  %d\n", stats.Fallbacks)
			return nil
		},
	}
}

func newLogsCmd(client func() *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "logs [category]",
		Short:     "View category logs (request, search, error, extractor)",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"request", "search", "error", "extractor"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := logger.ParseCategory(args[0]); !ok {
				return fmt.Errorf("unknown category %q", args[0])
			}

			query := url.Values{}
			if date, _ := cmd.Flags().GetString("date"); date != "" {
				query.Set("date", date)
			}
			if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}
			path := "/api/v1/logs/" + args[0]
			if q, _ := cmd.Flags().GetString("search"); q != "" {
				path += "/search"
				query.Set("q", q)
			}

			var resp struct {
				Entries []logger.LogEntry `json:"entries"`
			}
			if err := client().get(path, query, &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
				data, err := json.MarshalIndent(resp.Entries, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			for _, e := range resp.Entries {
				fmt.Fprintf(out, "%s %-5s %s%s\n", e.Timestamp, e.Level, e.Message, formatFields(e.Fields))
			}
			return nil
		},
	}
	cmd.Flags().StringP("date", "d", "", "Log date (YYYY-MM-DD, default today)")
	cmd.Flags().StringP("search", "q", "", "Only entries containing this text")
	cmd.Flags().IntP("limit", "n", 100, "Maximum number of entries")
	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	return cmd
}

func newHealthCmd(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check whether the bot is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			var health struct {
				Status  string `json:"status"`
				Version string `json:"version"`
				Bot     struct {
					Running bool `json:"running"`
				} `json:"bot"`
			}
			if err := client().get("/health", nil, &health); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Status: %s (version %s, bot running: %t)\n",
				health.Status, health.Version, health.Bot.Running)
			return nil
		},
	}
}

func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return ""
	}
	return " " + string(data)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
