// smartreviewer: news search with AI summaries and sentiment scoring.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/seenimoa/smartreviewer/api"
	"github.com/seenimoa/smartreviewer/internal/analyzer"
	"github.com/seenimoa/smartreviewer/internal/config"
	"github.com/seenimoa/smartreviewer/internal/store"
	"github.com/seenimoa/smartreviewer/pkg/models"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, set by the root command.
var (
	cfg    *config.Config
	logger *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "smartreviewer",
	Short: "smartreviewer: AI summaries and sentiment for news articles",
	Long: `smartreviewer searches news, summarizes articles with an LLM, scores
their sentiment and keeps the analyzed articles in a store served over
a small REST API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		logger, err = newLogger(cfg.Logging, os.Stderr)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(trendingCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(articlesCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("smartreviewer %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		repo, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			return err
		}
		defer repo.Close()

		news, closeNews, err := newNewsSource(cfg, logger)
		if err != nil {
			return err
		}
		defer closeNews()

		summarizer, resolver := newAI(cfg, logger)
		srv := api.NewServer(cfg, api.Options{
			News:       news,
			Summarizer: summarizer,
			Resolver:   resolver,
			Repo:       repo,
			Logger:     logger,
			Version:    version,
		})
		return srv.ListenAndServe(ctx, cfg.Addr())
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  smartreviewer System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Time (UTC):    %s\n", time.Now().UTC().Format(time.RFC3339))
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    LLM:           %s (model: %s)\n", cfg.LLM.BaseURL, cfg.LLM.Model)
		fmt.Printf("    News Source:   %s\n", cfg.News.Provider)
		fmt.Printf("    Cache:         %s (trending TTL %s)\n", cfg.Cache.Backend, cfg.TrendingTTL())
		fmt.Printf("    Store:         %s (%s)\n", cfg.Store.Driver, cfg.Store.BaseURL)
		fmt.Printf("    API Server:    %s\n", cfg.Addr())
		fmt.Println()

		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}
		fmt.Println()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		fmt.Println("  Connectivity:")
		for _, c := range runChecks(ctx, cfg) {
			status := "✅ ok"
			if c.Err != nil {
				status = "❌ " + c.Err.Error()
			}
			fmt.Printf("    %-25s %s\n", c.Name+":", status)
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

// --- Config Command ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		redacted := config.Redacted(cfg)
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(redacted)
	},
}

// --- News Commands ---

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search news articles",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("max")
		news, closeNews, err := newNewsSource(cfg, logger)
		if err != nil {
			return err
		}
		defer closeNews()

		articles, err := news.Search(cmd.Context(), strings.Join(args, " "), limit)
		if err != nil {
			return err
		}
		printArticles(cmd, articles)
		return nil
	},
}

var trendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "Show top headlines",
	RunE: func(cmd *cobra.Command, args []string) error {
		news, closeNews, err := newNewsSource(cfg, logger)
		if err != nil {
			return err
		}
		defer closeNews()

		articles, err := news.Trending(cmd.Context())
		if err != nil {
			return err
		}
		printArticles(cmd, articles)
		return nil
	},
}

func init() {
	searchCmd.Flags().Int("max", 10, "maximum number of articles")
}

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [query]",
	Short: "Search news and analyze the top results",
	Long: `Search news, then summarize and score the top results. Analyzed
articles are saved to the store at store.base_url unless --no-save is set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("max")
		noSave, _ := cmd.Flags().GetBool("no-save")

		news, closeNews, err := newNewsSource(cfg, logger)
		if err != nil {
			return err
		}
		defer closeNews()

		articles, err := news.Search(cmd.Context(), strings.Join(args, " "), limit)
		if err != nil {
			return err
		}

		var st analyzer.Store
		if !noSave {
			st = store.NewClient(cfg.Store.BaseURL)
		}
		summarizer, resolver := newAI(cfg, logger)
		an := analyzer.New(summarizer, resolver, st, logger)

		out := cmd.OutOrStdout()
		for _, a := range articles {
			res, err := an.Analyze(cmd.Context(), a)
			if err != nil {
				fmt.Fprintf(out, "✗ %s\n  %v\n\n", a.Title, err)
				continue
			}
			fmt.Fprintf(out, "● %s\n  %s (%d) · %s\n  %s\n\n", res.Title, res.Sentiment, res.SentimentScore, res.Source, res.Summary)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().Int("max", 3, "number of search results to analyze")
	analyzeCmd.Flags().Bool("no-save", false, "do not persist analyzed articles")
}

// --- Articles Command ---

var articlesCmd = &cobra.Command{
	Use:   "articles",
	Short: "List or delete stored analyzed articles",
}

var articlesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored analyzed articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := store.NewClient(cfg.Store.BaseURL).List(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSENTIMENT\tSCORE\tANALYZED\tTITLE")
		for _, r := range records {
			analyzed := ""
			if !r.AnalyzedAt.IsZero() {
				analyzed = r.AnalyzedAt.Format(time.DateTime)
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", r.ID, r.Sentiment, r.SentimentScore, analyzed, r.Title)
		}
		return w.Flush()
	},
}

var articlesDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a stored analyzed article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := store.NewClient(cfg.Store.BaseURL).Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

func init() {
	articlesCmd.AddCommand(articlesListCmd)
	articlesCmd.AddCommand(articlesDeleteCmd)
}

func printArticles(cmd *cobra.Command, articles []models.SearchResultArticle) {
	out := cmd.OutOrStdout()
	if len(articles) == 0 {
		fmt.Fprintln(out, "no articles found")
		return
	}
	for i, a := range articles {
		fmt.Fprintf(out, "%2d. %s\n    %s · %s\n    %s\n", i+1, a.Title, a.Source.Name, a.PublishedAt, a.URL)
	}
}
