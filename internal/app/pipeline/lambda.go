package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/tyler180/epl-player-stats/internal/config"
	"github.com/tyler180/epl-player-stats/internal/logging"
)

// Event is the Lambda payload.
type Event struct {
	Mode   string `json:"mode"`   // scrape | describe | cluster | transfers | publish | materialize | all
	Season string `json:"season"` // e.g., "2024-2025"; falls back to SEASON
	Force  bool   `json:"force"`  // ignore the scrape cache
}

// Raw is used by Lambda entrypoint to avoid tight coupling to the event type at the edge.
type Raw = json.RawMessage

// Response is returned to the Lambda caller.
type Response struct {
	OK          bool               `json:"ok"`
	Mode        string             `json:"mode"`
	Season      string             `json:"season"`
	RunID       string             `json:"run_id"`
	Scrape      *ScrapeResult      `json:"scrape,omitempty"`
	Transfers   *TransferResult    `json:"transfers,omitempty"`
	Publish     *PublishResult     `json:"publish,omitempty"`
	Materialize *MaterializeResult `json:"materialize,omitempty"`
	BestK       int                `json:"best_k,omitempty"`
	BestTeam    string             `json:"best_team,omitempty"`
}

// LambdaEntrypoint is the single Lambda handler exported from this package.
func LambdaEntrypoint(ctx context.Context, raw Raw) (*Response, error) {
	var e Event
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if e.Season != "" {
		cfg.Season = e.Season
	}
	if cfg.OutDir == "" || cfg.OutDir == "." {
		// only /tmp is writable in the Lambda runtime
		cfg.OutDir = "/tmp/eplstats"
	}
	log, err := logging.New(cfg.Debug)
	if err != nil {
		return nil, err
	}
	defer func() { _ = log.Sync() }()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	svc := New(cfg, log)
	svc.DDB = dynamodb.NewFromConfig(awsCfg)
	svc.S3 = s3.NewFromConfig(awsCfg)
	svc.Athena = athena.NewFromConfig(awsCfg)
	defer func() { _ = svc.Close() }()

	return svc.Run(ctx, e.Mode, e.Force)
}

// Run executes one mode. An empty mode falls back to MODE, then "all".
func (s *Service) Run(ctx context.Context, mode string, force bool) (*Response, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = strings.ToLower(strings.TrimSpace(os.Getenv("MODE")))
	}
	if mode == "" {
		mode = "all"
	}
	resp := &Response{Mode: mode, Season: s.Cfg.Season, RunID: s.RunID}
	s.Log.Info("run", zap.String("mode", mode), zap.String("season", s.Cfg.Season), zap.String("run_id", s.RunID))

	var err error
	switch mode {
	case "scrape":
		resp.Scrape, err = s.Scrape(ctx, force)
	case "describe":
		err = s.describe(ctx, resp)
	case "cluster":
		err = s.cluster(ctx, resp)
	case "transfers":
		resp.Transfers, err = s.Transfers(ctx)
	case "publish":
		resp.Publish, err = s.Publish(ctx)
	case "materialize":
		resp.Materialize, err = s.Materialize(ctx)
	case "all":
		err = s.all(ctx, force, resp)
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
	if err != nil {
		return nil, err
	}
	resp.OK = true
	return resp, nil
}

func (s *Service) describe(ctx context.Context, resp *Response) error {
	d, err := s.Describe(ctx)
	if err != nil {
		return err
	}
	if best, ok := d.Leadership.Best(); ok {
		resp.BestTeam = best.Team
	}
	return nil
}

func (s *Service) cluster(ctx context.Context, resp *Response) error {
	a, err := s.Cluster(ctx)
	if err != nil {
		return err
	}
	resp.BestK = a.Sweep.BestK
	return nil
}

// all runs the local jobs in order, then publish and materialize when their
// AWS settings are present.
func (s *Service) all(ctx context.Context, force bool, resp *Response) error {
	var err error
	if resp.Scrape, err = s.Scrape(ctx, force); err != nil {
		return err
	}
	if err := s.describe(ctx, resp); err != nil {
		return err
	}
	if err := s.cluster(ctx, resp); err != nil {
		return err
	}
	if resp.Transfers, err = s.Transfers(ctx); err != nil {
		return err
	}

	if s.DDB == nil || s.Cfg.AWS.TableName == "" {
		s.Log.Info("dynamodb table not configured; skipping publish")
		return nil
	}
	if resp.Publish, err = s.Publish(ctx); err != nil {
		return err
	}
	if s.Athena == nil || s.Cfg.AWS.AthenaOutput == "" || s.Cfg.AWS.CuratedBucket == "" {
		s.Log.Info("athena not configured; skipping materialize")
		return nil
	}
	resp.Materialize, err = s.Materialize(ctx)
	return err
}
