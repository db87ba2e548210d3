// energyprice: spot-price aggregation for energy commodities.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/seenimoa/energyprice/api"
	"github.com/seenimoa/energyprice/internal/aggregator"
	"github.com/seenimoa/energyprice/internal/commodity"
	"github.com/seenimoa/energyprice/internal/config"
	"github.com/seenimoa/energyprice/internal/infra"
	"github.com/seenimoa/energyprice/internal/news"
	"github.com/seenimoa/energyprice/internal/projection"
	"github.com/seenimoa/energyprice/internal/sources/eia"
	"github.com/seenimoa/energyprice/internal/sources/ember"
	"github.com/seenimoa/energyprice/internal/sources/fred"
	"github.com/seenimoa/energyprice/internal/sources/yfinance"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var (
	cfg    *config.Config
	logger *logrus.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "energyprice",
	Short: "Energy commodity spot prices with fallback resolution",
	Long: `energyprice aggregates spot prices for six energy commodities (oil,
natural gas, coal, solar, wind, nuclear) from EIA, FRED, Ember and Yahoo
Finance, falls back to static estimates when every upstream is down, and
projects how a hypothetical consumption change would move price.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Optional .env for local development; absence is fine.
		_ = godotenv.Load()

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
		logger = config.NewLogger(cfg.Logging)

		if err := commodity.Validate(); err != nil {
			return fmt.Errorf("commodity tables: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(commoditiesCmd)
	rootCmd.AddCommand(statusCmd)
}

// buildAggregator wires the shared cache and all four adapters.
func buildAggregator() *aggregator.Aggregator {
	cache := infra.NewCache(time.Duration(cfg.Cache.TTLSeconds) * time.Second)
	return aggregator.New(logger,
		eia.New(cfg.Providers.EIAAPIKey, cache),
		fred.New(cfg.Providers.FREDAPIKey, cache),
		ember.New(cache),
		yfinance.New(cache),
	)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("energyprice %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		api.Version = version
		feed := news.NewFeed(cfg.News.FeedURL, time.Duration(cfg.News.TTLSeconds)*time.Second)
		srv := api.NewServer(cfg, logger, buildAggregator(), feed)

		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		return srv.ListenAndServe(addr)
	},
}

// --- Quote Command ---

var quoteCmd = &cobra.Command{
	Use:   "quote [commodity]",
	Short: "Resolve and print the current price quote for a commodity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		quote, err := buildAggregator().Resolve(ctx, commodity.Key(args[0]))
		if err != nil {
			return err
		}

		fmt.Printf("%s\n", quote.Commodity)
		fmt.Printf("  US:    %.2f %s (%s, %s)\n", quote.US.Value, quote.UnitsUS, quote.US.Source, quote.US.Date)
		fmt.Printf("  World: %.2f %s (%s, %s)\n", quote.World.Value, quote.UnitsWorld, quote.World.Source, quote.World.Date)
		if quote.IsFallback {
			fmt.Println("  note: estimated data, no live source available")
		}
		return nil
	},
}

// --- Project Command ---

var projectCmd = &cobra.Command{
	Use:   "project [commodity]",
	Short: "Project the price impact of a consumption change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := commodity.Key(args[0])
		cCfg, err := commodity.Get(key)
		if err != nil {
			return err
		}

		usageChange, _ := cmd.Flags().GetFloat64("usage-change")
		price, _ := cmd.Flags().GetFloat64("price")
		region, _ := cmd.Flags().GetString("region")

		live := false
		unit := cCfg.USUnit
		if region == "world" {
			unit = cCfg.WorldUnit
		}
		if price <= 0 {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			quote, err := buildAggregator().Resolve(ctx, key)
			if err != nil {
				return err
			}
			if region == "world" {
				price = quote.World.Value
			} else {
				price = quote.US.Value
			}
			live = !quote.IsFallback
		}

		changePct, newPrice := projection.ProjectCommodity(cCfg, price, usageChange)
		fmt.Printf("%s (%s): usage %+.1f%%\n", cCfg.Name, region, usageChange)
		fmt.Printf("  current: %.2f %s", price, unit)
		if !live {
			fmt.Printf(" (estimated)")
		}
		fmt.Println()
		fmt.Printf("  price change: %+.2f%%\n", changePct)
		fmt.Printf("  new price:    %.2f %s\n", newPrice, unit)
		return nil
	},
}

func init() {
	projectCmd.Flags().Float64("usage-change", 0, "consumption change in percent (negative = contraction)")
	projectCmd.Flags().Float64("price", 0, "current price override (default: resolve live)")
	projectCmd.Flags().String("region", "us", `price region: "us" or "world"`)
}

// --- Commodities Command ---

var commoditiesCmd = &cobra.Command{
	Use:   "commodities",
	Short: "List configured commodities",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%-12s %-28s %-14s %10s %8s\n", "KEY", "NAME", "UNIT", "ELASTICITY", "FACTOR")
		for _, c := range commodity.All() {
			fmt.Printf("%-12s %-28s %-14s %10.2f %8.2f\n",
				c.Key, c.FullName, c.USUnit, c.Elasticity, c.SupplyFactor)
		}
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show provider credential status",
	Run: func(cmd *cobra.Command, args []string) {
		for _, ks := range config.CheckAPIKeys(cfg) {
			state := "not set"
			if ks.IsSet {
				state = fmt.Sprintf("set (%s, %s)", ks.Source, ks.Masked)
			}
			fmt.Printf("%-14s %s\n", ks.Name+":", state)
		}
	},
}
