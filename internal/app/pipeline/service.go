package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tyler180/epl-player-stats/internal/ath"
	"github.com/tyler180/epl-player-stats/internal/cache"
	"github.com/tyler180/epl-player-stats/internal/cluster"
	"github.com/tyler180/epl-player-stats/internal/config"
	"github.com/tyler180/epl-player-stats/internal/dataset"
	"github.com/tyler180/epl-player-stats/internal/describe"
	"github.com/tyler180/epl-player-stats/internal/export"
	"github.com/tyler180/epl-player-stats/internal/fbref"
	"github.com/tyler180/epl-player-stats/internal/fetch"
	"github.com/tyler180/epl-player-stats/internal/frame"
	"github.com/tyler180/epl-player-stats/internal/logging"
	"github.com/tyler180/epl-player-stats/internal/materializer"
	"github.com/tyler180/epl-player-stats/internal/plots"
	"github.com/tyler180/epl-player-stats/internal/store"
	"github.com/tyler180/epl-player-stats/internal/transfermarkt"
)

// Output file names, relative to Config.OutDir.
const (
	TopBottomFile          = "top_3.txt"
	SummaryFile            = "results2.csv"
	HistogramDir           = "histograms"
	LeadershipDetailsFile  = "leadership_details.csv"
	LeadershipCountsFile   = "leadership_counts.csv"
	TeamAnalysisFile       = "best_team_analysis.txt"
	ClusterAssignmentsFile = "player_clusters.csv"
	ClusterScatterFile     = "player_clusters.png"
	ClusterSweepFile       = "clustering_analysis.png"
	ClusterExplanationFile = "clustering_explanation.txt"
	TransferValuesFile     = "transfer_values.csv"
	TransferExplainFile    = "transfer_value_explanation.txt"
)

// ErrNotConfigured is returned by jobs whose AWS settings are missing.
var ErrNotConfigured = errors.New("not configured")

// Service runs the batch jobs against one Config. AWS clients are optional
// and only needed by Publish and Materialize.
type Service struct {
	Cfg   *config.Config
	Log   *zap.Logger
	RunID string

	// Fetcher overrides the configured page fetcher; used by tests.
	Fetcher fetch.Fetcher

	DDB    store.DynamoDBAPI
	S3     export.S3API
	Athena ath.AthenaAPI

	closers []io.Closer
}

func New(cfg *config.Config, log *zap.Logger) *Service {
	return &Service{Cfg: cfg, Log: logging.OrNop(log), RunID: uuid.NewString()}
}

// Close releases any browser started by a job.
func (s *Service) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *Service) path(name string) string { return filepath.Join(s.Cfg.OutDir, name) }

func (s *Service) ensureOutDir() error {
	if err := os.MkdirAll(s.Cfg.OutDir, 0o755); err != nil {
		return fmt.Errorf("output dir %s: %w", s.Cfg.OutDir, err)
	}
	return nil
}

func (s *Service) fetcher(waitSelector, referer string) fetch.Fetcher {
	if s.Fetcher != nil {
		return s.Fetcher
	}
	if strings.EqualFold(s.Cfg.Fetcher, "browser") {
		b := fetch.NewBrowserFetcher(waitSelector, s.Cfg.HTTP.BrowserWait(), s.Log)
		s.closers = append(s.closers, b)
		return b
	}
	return fetch.NewHTTPFetcher(s.Cfg.HTTP, referer, s.Log)
}

func writeText(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// ScrapeResult summarises a scrape run.
type ScrapeResult struct {
	Players int    `json:"players"`
	Path    string `json:"path"`
}

// Scrape fetches every fbref category and writes results.csv.
func (s *Service) Scrape(ctx context.Context, force bool) (*ScrapeResult, error) {
	if err := s.ensureOutDir(); err != nil {
		return nil, err
	}
	fc := s.Cfg.FBref
	sc := &fbref.Scraper{
		Fetcher:    s.fetcher("#content", fc.BaseURL+"/"),
		Cache:      cache.New[map[string]fbref.Record](s.path(fc.CacheFile)),
		BaseURL:    fc.BaseURL,
		CompID:     fc.CompID,
		CompSlug:   fc.CompSlug,
		Workers:    fc.Workers,
		Attempts:   fc.TableRetries,
		RetryDelay: fc.RetryDelay(),
		MinMinutes: fc.MinMinutes,
		Log:        s.Log,
	}
	players, err := sc.ScrapeAll(ctx, force)
	if err != nil {
		return nil, err
	}
	out := s.path(fc.ResultsFile)
	if err := fbref.WriteResultsFile(out, players); err != nil {
		return nil, err
	}
	s.Log.Info("results written", zap.String("path", out), zap.Int("players", len(players)))
	return &ScrapeResult{Players: len(players), Path: out}, nil
}

func (s *Service) loadFrame() (*frame.Frame, error) {
	p := s.path(s.Cfg.FBref.ResultsFile)
	f, err := frame.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("load %s (run scrape first): %w", p, err)
	}
	return f, nil
}

func (s *Service) loadDataset() (*dataset.Dataset, error) {
	f, err := s.loadFrame()
	if err != nil {
		return nil, err
	}
	return dataset.FromFrame(f), nil
}

// DescribeResult carries the leadership tables for console output.
type DescribeResult struct {
	Rankings   int
	Histograms int
	Leadership describe.Leadership
}

// Describe writes top/bottom listings, per-team summaries, histograms and
// the team leadership analysis.
func (s *Service) Describe(ctx context.Context) (*DescribeResult, error) {
	d, err := s.loadDataset()
	if err != nil {
		return nil, err
	}
	rankings := describe.TopBottom(d, 3)
	if err := writeText(s.path(TopBottomFile), func(w io.Writer) error {
		return describe.WriteRankings(w, rankings)
	}); err != nil {
		return nil, err
	}
	if err := describe.Summaries(d).WriteFile(s.path(SummaryFile)); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, err := plots.Histograms(s.Log, d, s.path(HistogramDir))
	if err != nil {
		return nil, err
	}

	lead := describe.Leaders(d)
	if err := lead.DetailsFrame().WriteFile(s.path(LeadershipDetailsFile)); err != nil {
		return nil, err
	}
	if err := lead.CountsFrame().WriteFile(s.path(LeadershipCountsFile)); err != nil {
		return nil, err
	}
	if err := writeText(s.path(TeamAnalysisFile), lead.WriteAnalysis); err != nil {
		return nil, err
	}
	s.Log.Info("descriptive statistics written",
		zap.Int("stats", len(d.Stats)),
		zap.Int("teams", len(d.Teams())),
		zap.Int("histograms", n))
	return &DescribeResult{Rankings: len(rankings), Histograms: n, Leadership: lead}, nil
}

// Cluster runs the k sweep, the final fit and the PCA projection.
func (s *Service) Cluster(ctx context.Context) (*cluster.Analysis, error) {
	d, err := s.loadDataset()
	if err != nil {
		return nil, err
	}
	cc := s.Cfg.Cluster
	a, err := cluster.Analyze(d, cc.MinK, cc.MaxK, cc.Seed)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := a.AssignmentsFrame().WriteFile(s.path(ClusterAssignmentsFile)); err != nil {
		return nil, err
	}
	if err := plots.Sweep(s.path(ClusterSweepFile), a.Sweep.Ks, a.Sweep.Inertia, a.Sweep.Silhouette); err != nil {
		s.Log.Warn("sweep chart skipped", zap.Error(err))
	}
	if err := plots.Clusters(s.path(ClusterScatterFile), a.Projection.Points, a.Fit.Labels, a.Fit.K); err != nil {
		s.Log.Warn("cluster chart skipped", zap.Error(err))
	}
	if err := writeText(s.path(ClusterExplanationFile), a.WriteExplanation); err != nil {
		return nil, err
	}
	s.Log.Info("clustering done",
		zap.Int("players", d.Len()),
		zap.Int("features", len(a.Features)),
		zap.Int("k", a.Fit.K))
	return a, nil
}

// TransferResult summarises a market value run.
type TransferResult struct {
	Eligible int `json:"eligible"`
	Known    int `json:"known"`
}

// Transfers values every player above the minutes threshold.
func (s *Service) Transfers(ctx context.Context) (*TransferResult, error) {
	d, err := s.loadDataset()
	if err != nil {
		return nil, err
	}
	tc := s.Cfg.Transfers
	eligible := transfermarkt.Eligible(d, float64(tc.MinMinutes))

	names := make([]string, eligible.Len())
	for r := range names {
		names[r] = eligible.Player(r)
	}
	v := &transfermarkt.Valuer{
		Fetcher: s.fetcher("table.items", "https://www.transfermarkt.com/"),
		Cache:   cache.New[map[string]*float64](s.path(tc.CacheFile)),
		URL:     tc.URL,
		Matcher: transfermarkt.Matcher{Fuzzy: tc.FuzzyMatch, Minimum: tc.FuzzyMinimum},
		Log:     s.Log,
	}
	values, err := v.Values(ctx, names)
	if err != nil {
		return nil, err
	}
	if err := transfermarkt.ValuesFrame(eligible, values).WriteFile(s.path(TransferValuesFile)); err != nil {
		return nil, err
	}
	if err := writeText(s.path(TransferExplainFile), transfermarkt.WriteExplanation); err != nil {
		return nil, err
	}

	res := &TransferResult{Eligible: eligible.Len()}
	for _, v := range values {
		if v != nil {
			res.Known++
		}
	}
	s.Log.Info("transfer values written", zap.Int("eligible", res.Eligible), zap.Int("known", res.Known))
	return res, nil
}

// PublishResult summarises what was written to AWS.
type PublishResult struct {
	RunID     string `json:"run_id"`
	Items     int    `json:"items"`
	Transfers int    `json:"transfers"`
	StatRows  int    `json:"stat_rows"`
	Key       string `json:"key,omitempty"`
}

// Publish writes results.csv to DynamoDB, the transfer values (if present)
// onto the same items, and the long-format parquet export to S3.
func (s *Service) Publish(ctx context.Context) (*PublishResult, error) {
	ac := s.Cfg.AWS
	if s.DDB == nil || ac.TableName == "" {
		return nil, fmt.Errorf("publish: dynamodb table: %w", ErrNotConfigured)
	}
	f, err := s.loadFrame()
	if err != nil {
		return nil, err
	}
	res := &PublishResult{RunID: s.RunID, Items: f.Len()}

	if err := store.PutPlayerRows(ctx, s.DDB, ac.TableName, s.Cfg.Season, s.RunID, f); err != nil {
		return nil, err
	}
	s.Log.Info("player rows stored", zap.String("table", ac.TableName), zap.Int("items", f.Len()))

	n, err := s.publishTransfers(ctx)
	if err != nil {
		return nil, err
	}
	res.Transfers = n

	if s.S3 == nil || ac.CuratedBucket == "" {
		s.Log.Info("curated bucket not configured; skipping parquet export")
		return res, nil
	}
	rows := export.LongRows(dataset.FromFrame(f), s.Cfg.Season, s.RunID)
	key := export.Key(ac.CuratedPrefix, s.Cfg.Season, export.NowStamp())
	up := &export.Uploader{Client: s.S3, Bucket: ac.CuratedBucket}
	if err := export.WriteParquetAndUpload(ctx, rows, key, up); err != nil {
		return nil, err
	}
	res.StatRows, res.Key = len(rows), key
	s.Log.Info("parquet exported", zap.String("bucket", ac.CuratedBucket), zap.String("key", key), zap.Int("rows", len(rows)))
	return res, nil
}

func (s *Service) publishTransfers(ctx context.Context) (int, error) {
	p := s.path(TransferValuesFile)
	f, err := frame.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n := 0
	for r := 0; r < f.Len(); r++ {
		var v *float64
		if x := frame.ParseFloat(f.Get(r, transfermarkt.ValueCol)); !math.IsNaN(x) {
			v = &x
		}
		err := store.UpdateTransferValue(ctx, s.DDB, s.Cfg.AWS.TableName, s.Cfg.Season,
			f.Get(r, dataset.PlayerCol), f.Get(r, dataset.TeamCol), v)
		if err != nil {
			s.Log.Warn("transfer value not stored", zap.String("player", f.Get(r, dataset.PlayerCol)), zap.Error(err))
			continue
		}
		n++
	}
	return n, nil
}

// MaterializeResult reports the serving table and its per-stat leaders.
type MaterializeResult struct {
	Table    string     `json:"table"`
	RowCount int64      `json:"row_count"`
	Leaders  [][]string `json:"leaders"`
}

// Materialize registers the exported parquet in Athena and rebuilds the
// per-team stat means table for the season.
func (s *Service) Materialize(ctx context.Context) (*MaterializeResult, error) {
	ac := s.Cfg.AWS
	if s.Athena == nil || ac.AthenaOutput == "" || ac.CuratedBucket == "" {
		return nil, fmt.Errorf("materialize: athena output and curated bucket: %w", ErrNotConfigured)
	}
	r := &ath.Runner{
		Client:    s.Athena,
		Workgroup: ac.AthenaWorkgroup,
		Database:  ac.AthenaDB,
		OutputS3:  ac.AthenaOutput,
		Logger:    s.Log,
		PollEvery: time.Duration(ac.AthenaPollMS) * time.Millisecond,
	}
	db := ac.AthenaDB
	prefix := strings.Trim(ac.CuratedPrefix, "/")
	source := fmt.Sprintf("s3://%s/%s/%s/", ac.CuratedBucket, prefix, materializer.SourceTable)
	// CTAS needs an empty external_location, so each run gets its own
	serve := fmt.Sprintf("s3://%s/%s/serve/%s/run=%s/", ac.CuratedBucket, prefix, materializer.TableName, s.RunID)

	if _, err := r.ExecAndWait(ctx, materializer.BuildSourceTable(db, source)); err != nil {
		return nil, fmt.Errorf("create source table: %w", err)
	}
	if _, err := r.ExecAndWait(ctx, materializer.BuildRepair(db)); err != nil {
		return nil, fmt.Errorf("repair partitions: %w", err)
	}
	if _, err := r.ExecAndWait(ctx, materializer.BuildDrop(db)); err != nil {
		s.Log.Warn("drop table failed", zap.Error(err))
	}
	ctas := materializer.BuildCTAS(db, s.Cfg.Season, serve)
	s.Log.Debug("CTAS SQL", zap.String("sql", ctas))
	if _, err := r.ExecAndWait(ctx, ctas); err != nil {
		return nil, fmt.Errorf("create CTAS: %w", err)
	}
	count, err := r.CountRows(ctx, materializer.BuildCount(db, s.Cfg.Season))
	if err != nil {
		return nil, fmt.Errorf("count rows: %w", err)
	}

	res := &MaterializeResult{Table: db + "." + materializer.TableName, RowCount: count}
	// leaders are informational; a failure does not fail the run
	if rows, err := r.Rows(ctx, materializer.BuildTeamLeaders(db, s.Cfg.Season)); err != nil {
		s.Log.Warn("team leaders query failed", zap.Error(err))
	} else {
		res.Leaders = rows
	}
	return res, nil
}
