package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyler180/epl-player-stats/internal/app/pipeline"
	"github.com/tyler180/epl-player-stats/internal/config"
	"github.com/tyler180/epl-player-stats/internal/logging"
	"github.com/tyler180/epl-player-stats/internal/store"
)

var (
	// Global flags
	cfgFile string
	outDir  string
	season  string
	fetcher string
	verbose bool
	force   bool

	logger *zap.Logger
	svc    *pipeline.Service
)

var rootCmd = &cobra.Command{
	Use:   "eplstats",
	Short: "Premier League player statistics pipeline",
	Long: `eplstats scrapes per-player season tables from fbref, merges them into
results.csv and builds reports on top of it:

  describe     top/bottom players, per-team summaries, histograms, team leaders
  cluster      k-means over standardized stats with a PCA projection
  transfers    market values for regular starters
  publish      DynamoDB items and a parquet export to S3
  materialize  Athena table of per-team stat means`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		flags := cmd.Flags()
		if flags.Changed("out") {
			cfg.OutDir = outDir
		}
		if flags.Changed("season") {
			cfg.Season = season
		}
		if flags.Changed("fetcher") {
			cfg.Fetcher = fetcher
		}
		if verbose {
			cfg.Debug = true
		}

		logger, err = logging.New(cfg.Debug)
		if err != nil {
			return err
		}
		svc = pipeline.New(cfg, logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if svc != nil {
			_ = svc.Close()
		}
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Fetch every fbref stat table and write results.csv",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := svc.Scrape(cmd.Context(), force)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d players written to %s\n", res.Players, res.Path)
		return nil
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Top/bottom players, team summaries, histograms and team leaders",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := svc.Describe(cmd.Context())
		if err != nil {
			return err
		}
		res.Leadership.RenderCounts(cmd.OutOrStdout())
		if best, ok := res.Leadership.Best(); ok {
			fmt.Fprintf(cmd.OutOrStdout(), "Best-performing team: %s (%d stats)\n", best.Team, best.Count)
		}
		return nil
	},
}

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Cluster players with k-means and project them with PCA",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := svc.Cluster(cmd.Context())
		if err != nil {
			return err
		}
		renderSweep(cmd.OutOrStdout(), a)
		return nil
	},
}

var transfersCmd = &cobra.Command{
	Use:   "transfers",
	Short: "Look up market values for players above the minutes threshold",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := svc.Transfers(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d of %d players valued\n", res.Known, res.Eligible)
		return nil
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Write results to DynamoDB and a parquet export to S3",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := attachAWS(cmd.Context()); err != nil {
			return err
		}
		res, err := svc.Publish(cmd.Context())
		if err != nil {
			return err
		}
		renderPublish(cmd.OutOrStdout(), res)
		return nil
	},
}

var materializeCmd = &cobra.Command{
	Use:   "materialize",
	Short: "Rebuild the Athena per-team stat means table",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := attachAWS(cmd.Context()); err != nil {
			return err
		}
		res, err := svc.Materialize(cmd.Context())
		if err != nil {
			return err
		}
		renderLeaders(cmd.OutOrStdout(), res)
		return nil
	},
}

var storedCmd = &cobra.Command{
	Use:   "stored",
	Short: "List the players stored in DynamoDB for the season",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := attachAWS(cmd.Context()); err != nil {
			return err
		}
		cfg := svc.Cfg
		if cfg.AWS.TableName == "" {
			return fmt.Errorf("stored: dynamodb table: %w", pipeline.ErrNotConfigured)
		}
		q, ok := svc.DDB.(store.DynamoDBReadAPI)
		if !ok {
			return fmt.Errorf("dynamodb client cannot query")
		}
		players, err := store.LoadSeason(cmd.Context(), q, cfg.AWS.TableName, cfg.Season)
		if err != nil {
			return err
		}
		renderStored(cmd.OutOrStdout(), players)
		return nil
	},
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run every job in order; AWS jobs run when configured",
	RunE: func(cmd *cobra.Command, args []string) error {
		if svc.Cfg.AWS.TableName != "" {
			if err := attachAWS(cmd.Context()); err != nil {
				return err
			}
		}
		res, err := svc.Run(cmd.Context(), "all", force)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d players, best k=%d, best team %s\n",
			res.RunID, res.Scrape.Players, res.BestK, res.BestTeam)
		if res.Publish != nil {
			renderPublish(cmd.OutOrStdout(), res.Publish)
		}
		if res.Materialize != nil {
			renderLeaders(cmd.OutOrStdout(), res.Materialize)
		}
		return nil
	},
}

func attachAWS(ctx context.Context) error {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("aws config: %w", err)
	}
	svc.DDB = dynamodb.NewFromConfig(awsCfg)
	svc.S3 = s3.NewFromConfig(awsCfg)
	svc.Athena = athena.NewFromConfig(awsCfg)
	return nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")
	pf.StringVarP(&outDir, "out", "o", ".", "output directory")
	pf.StringVar(&season, "season", "", "season label, e.g. 2024-2025")
	pf.StringVar(&fetcher, "fetcher", "http", "page fetcher: http or browser")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	scrapeCmd.Flags().BoolVar(&force, "force", false, "ignore the scrape cache")
	allCmd.Flags().BoolVar(&force, "force", false, "ignore the scrape cache")

	rootCmd.AddCommand(scrapeCmd, describeCmd, clusterCmd, transfersCmd, publishCmd, materializeCmd, storedCmd, allCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
