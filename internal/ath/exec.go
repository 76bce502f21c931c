package ath

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
	"go.uber.org/zap"

	"github.com/tyler180/epl-player-stats/internal/logging"
)

type AthenaAPI interface {
	StartQueryExecution(ctx context.Context, params *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, params *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
	GetQueryResults(ctx context.Context, params *athena.GetQueryResultsInput, optFns ...func(*athena.Options)) (*athena.GetQueryResultsOutput, error)
}

type Runner struct {
	Client    AthenaAPI
	Workgroup string
	Database  string
	OutputS3  string // s3://bucket/prefix/
	Logger    *zap.Logger
	PollEvery time.Duration // defaults to 1s
}

func (r *Runner) ExecAndWait(ctx context.Context, sql string) (*types.QueryExecution, error) {
	log := logging.OrNop(r.Logger)
	startOut, err := r.Client.StartQueryExecution(ctx, &athena.StartQueryExecutionInput{
		QueryString: &sql,
		QueryExecutionContext: &types.QueryExecutionContext{
			Database: &r.Database,
		},
		ResultConfiguration: &types.ResultConfiguration{
			OutputLocation: &r.OutputS3,
		},
		WorkGroup: &r.Workgroup,
	})
	if err != nil {
		return nil, fmt.Errorf("start query: %w", err)
	}
	qid := *startOut.QueryExecutionId
	log.Debug("athena query started", zap.String("qid", qid))

	every := r.PollEvery
	if every <= 0 {
		every = time.Second
	}
	tick := time.NewTicker(every)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-tick.C:
			ge, err := r.Client.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
				QueryExecutionId: &qid,
			})
			if err != nil {
				return nil, fmt.Errorf("get query execution: %w", err)
			}
			switch ge.QueryExecution.Status.State {
			case types.QueryExecutionStateSucceeded:
				if stats := ge.QueryExecution.Statistics; stats != nil {
					var scannedMB float64
					if stats.DataScannedInBytes != nil {
						scannedMB = float64(*stats.DataScannedInBytes) / 1024.0 / 1024.0
					}

					var execSec float64
					if stats.EngineExecutionTimeInMillis != nil {
						execSec = float64(*stats.EngineExecutionTimeInMillis) / 1000.0
					}

					log.Info("athena query succeeded",
						zap.String("qid", qid),
						zap.Float64("scanned_mb", scannedMB),
						zap.Float64("exec_seconds", execSec))
				}
				return ge.QueryExecution, nil
			case types.QueryExecutionStateFailed:
				msg := "unknown error"
				if st := ge.QueryExecution.Status; st.AthenaError != nil && st.AthenaError.ErrorMessage != nil {
					msg = *st.AthenaError.ErrorMessage
				} else if st.StateChangeReason != nil {
					msg = *st.StateChangeReason
				}
				return nil, errors.New("athena failed: " + msg)
			case types.QueryExecutionStateCancelled:
				return nil, errors.New("athena cancelled")
			default:
				// still running
			}
		}
	}
}

// Rows runs sql and returns the result rows without the header row.
// Only the first page of results is read.
func (r *Runner) Rows(ctx context.Context, sql string) ([][]string, error) {
	exec, err := r.ExecAndWait(ctx, sql)
	if err != nil {
		return nil, err
	}
	gr, err := r.Client.GetQueryResults(ctx, &athena.GetQueryResultsInput{
		QueryExecutionId: exec.QueryExecutionId,
	})
	if err != nil {
		return nil, fmt.Errorf("get results: %w", err)
	}
	if gr.ResultSet == nil || len(gr.ResultSet.Rows) < 2 {
		return nil, nil
	}
	out := make([][]string, 0, len(gr.ResultSet.Rows)-1)
	for _, row := range gr.ResultSet.Rows[1:] {
		rec := make([]string, len(row.Data))
		for i, d := range row.Data {
			if d.VarCharValue != nil {
				rec[i] = *d.VarCharValue
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *Runner) CountRows(ctx context.Context, sql string) (int64, error) {
	rows, err := r.Rows(ctx, sql)
	if err != nil {
		return 0, err
	}
	if len(rows) < 1 || len(rows[0]) < 1 || rows[0][0] == "" {
		return 0, errors.New("unexpected COUNT(*) result shape")
	}
	var n int64
	if _, err := fmt.Sscan(rows[0][0], &n); err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return n, nil
}
