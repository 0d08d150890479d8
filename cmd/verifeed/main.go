package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jmherbst/verifeed/internal/api"
	"github.com/jmherbst/verifeed/internal/card"
	"github.com/jmherbst/verifeed/internal/config"
	"github.com/jmherbst/verifeed/internal/debuglog"
	"github.com/jmherbst/verifeed/internal/search"
	"github.com/jmherbst/verifeed/internal/sources"
	"github.com/jmherbst/verifeed/internal/storage"
	"github.com/jmherbst/verifeed/internal/tui"
	"github.com/jmherbst/verifeed/internal/validation"
)

// Version is the version of the application, set at build time
var Version = "dev"

var (
	flagConfig string
	flagDB     string
	flagQuiet  bool
	flagLog    string
	flagURL    string
)

var rootCmd = &cobra.Command{
	Use:   "verifeed",
	Short: "Terminal reader for a fake-news detection feed",
	Long: `verifeed browses the card feed of a fake-news detection backend:
infinite scroll, offline archive search, engagement and on-demand media
loading, all from the terminal.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBrowse()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("verifeed %s\n", Version)
		fmt.Println("Article feed reader")
		fmt.Println("github.com/jmherbst/verifeed")
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configGenCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a default config file",
	Run: func(cmd *cobra.Command, args []string) {
		configFile := config.DefaultConfigPath()
		if err := config.GenerateDefaultConfig(configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Generated default configuration at: %s\n", configFile)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show backend prediction statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Server.HTTPTimeout)
		defer cancel()

		stats, err := api.NewClient(cfg).FetchStats(ctx)
		if err != nil {
			return fmt.Errorf("fetching stats: %w", err)
		}

		fmt.Printf("Total predictions: %d\n", stats.TotalPredictions)
		for _, verdict := range []string{"REAL", "FAKE"} {
			vs, ok := stats.ByVerdict[verdict]
			if !ok {
				continue
			}
			fmt.Printf("  %-4s %d cards, avg confidence %.0f%%\n", verdict, vs.Count, vs.AvgConfidence*100)
		}
		for _, window := range []string{"last_24h", "last_7d", "last_30d"} {
			if n, ok := stats.TimeBased[window]; ok {
				fmt.Printf("  %s: %d\n", strings.ReplaceAll(window, "_", " "), n)
			}
		}
		if len(stats.TopTags) > 0 {
			tags := make([]string, 0, len(stats.TopTags))
			for _, t := range stats.TopTags {
				tags = append(tags, fmt.Sprintf("%s (%d)", t.Tag, t.Count))
			}
			fmt.Printf("  top tags: %s\n", strings.Join(tags, ", "))
		}

		if store, serr := openStore(cfg); serr == nil {
			fmt.Println(localCacheSummary(store))
			store.Close()
		}
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [text...]",
	Short: "Classify an article without opening the TUI",
	Long: `Send text or an article URL to the backend for classification and
print the resulting card.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagURL == "" && len(args) == 0 {
			return fmt.Errorf("provide text arguments or --url")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client := api.NewClient(cfg)

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Server.HTTPTimeout)
		defer cancel()

		var c *card.Card
		switch {
		case flagURL != "":
			validator := validation.NewPermissiveArticleURLValidator()
			normalized, err := validator.ValidateAndNormalize(flagURL)
			if err != nil {
				return err
			}
			c, err = client.AnalyzeURL(ctx, normalized)
			if err != nil {
				return err
			}
		default:
			c, err = client.PredictText(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
		}

		printCard(c)
		return nil
	},
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage watched feeds",
}

var sourcesAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Watch a feed and classify its entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, store, watcher, err := openWatcher()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Server.HTTPTimeout)
		defer cancel()

		src, err := watcher.AddSource(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Added %s (%s)\n", src.Title, src.ID)

		cards, err := watcher.CheckSource(ctx, src)
		if err != nil {
			return err
		}
		fmt.Printf("Classified %d entries\n", len(cards))
		return nil
	},
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List watched feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, _, err := openWatcher()
		if err != nil {
			return err
		}
		defer store.Close()

		srcs, err := store.GetAllSources()
		if err != nil {
			return err
		}
		if len(srcs) == 0 {
			fmt.Println("No sources")
			return nil
		}
		for _, src := range srcs {
			status := ""
			if src.LastError != "" {
				status = "  [error: " + src.LastError + "]"
			}
			fmt.Printf("%s  %-30s %s%s\n", src.ID, src.Title, src.URL, status)
		}
		return nil
	},
}

var sourcesRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Stop watching a feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, _, err := openWatcher()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.DeleteSource(args[0]); err != nil {
			return err
		}
		fmt.Println("Removed", args[0])
		return nil
	},
}

var sourcesRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch all watched feeds and classify new entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, store, watcher, err := openWatcher()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*cfg.Server.HTTPTimeout)
		defer cancel()

		cards, err := watcher.CheckAll(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Classified %d new entries\n", len(cards))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "Path to database file (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLog, "log", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&flagQuiet, "quiet", false, "Skip startup banner")
	analyzeCmd.Flags().StringVar(&flagURL, "url", "", "Article URL to analyze")

	configCmd.AddCommand(configGenCmd)
	sourcesCmd.AddCommand(sourcesAddCmd, sourcesListCmd, sourcesRemoveCmd, sourcesRefreshCmd)
	rootCmd.AddCommand(versionCmd, configCmd, statsCmd, analyzeCmd, sourcesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if flagDB != "" {
		cfg.Database.Path = flagDB
	}
	if flagLog != "" {
		if err := debuglog.Setup(debuglog.ParseLogLevel(flagLog)); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (*storage.Store, error) {
	dbPath, err := validation.NewPathHandler().DatabasePath(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	return storage.NewStore(dbPath)
}

func openWatcher() (*config.Config, *storage.Store, *sources.Watcher, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database: %w", err)
	}
	watcher := sources.NewWatcher(store, api.NewClient(cfg), cfg.Server.UserAgent, cfg.Server.HTTPTimeout)
	return cfg, store, watcher, nil
}

func runBrowse() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer debuglog.Close()

	if !flagQuiet {
		tui.ShowBanner(Version)
	}

	// The feed works without a local database; caching, engagement and
	// archive search just switch off.
	var searcher search.Searcher
	store, err := openStore(cfg)
	if err != nil {
		debuglog.Warnf("main: cache unavailable: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: local cache unavailable: %v\n", err)
		store = nil
	} else {
		defer store.Close()
		searcher = openSearcher(cfg, store)
	}

	app := tui.NewApp(api.NewClient(cfg), store, searcher, cfg)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithReportFocus())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}

// openSearcher prefers the persistent index and falls back to the
// in-memory scorer when it cannot be opened.
func openSearcher(cfg *config.Config, store *storage.Store) search.Searcher {
	indexPath, err := validation.NewPathHandler().IndexPath(cfg.Database.SearchIndex)
	if err == nil {
		if s, berr := search.NewBleveEngine(store, indexPath); berr == nil {
			return s
		} else {
			err = berr
		}
	}
	debuglog.Warnf("main: search index unavailable, using in-memory search: %v", err)
	return search.NewEngine(store)
}

// localCacheSummary reports the offline cache size and freshness.
func localCacheSummary(store *storage.Store) string {
	count, err := store.CardCount()
	if err != nil {
		return "local cache: unavailable"
	}
	last, err := store.LastSync()
	if err != nil || last.IsZero() {
		return fmt.Sprintf("local cache: %d cards", count)
	}
	return fmt.Sprintf("local cache: %d cards, synced %s", count, last.Local().Format("2006-01-02 15:04"))
}

func printCard(c *card.Card) {
	fmt.Printf("%s  (%.0f%% confidence)\n", c.Verdict, c.Confidence*100)
	if c.Title != "" {
		fmt.Println(c.Title)
	}
	if c.Author != "" {
		fmt.Println("by", c.Author)
	}
	if len(c.Tags) > 0 {
		fmt.Println("tags:", strings.Join(c.Tags, ", "))
	}
}
