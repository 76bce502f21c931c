package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	athtypes "github.com/aws/aws-sdk-go-v2/service/athena/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tyler180/epl-player-stats/internal/config"
	"github.com/tyler180/epl-player-stats/internal/frame"
)

type squad struct {
	name, team, pos, minutes string
	goals, assists, prgp     int
}

var squads = []squad{
	{"Bukayo Saka", "Arsenal", "FW", "2,400", 12, 9, 80},
	{"Martin Ødegaard", "Arsenal", "MF", "2,100", 6, 10, 120},
	{"William Saliba", "Arsenal", "DF", "3,000", 2, 1, 60},
	{"Declan Rice", "Arsenal", "MF", "2,900", 4, 7, 150},
	{"Cole Palmer", "Chelsea", "FW", "2,800", 15, 8, 90},
	{"Enzo Fernández", "Chelsea", "MF", "2,500", 5, 6, 140},
	{"Levi Colwill", "Chelsea", "DF", "2,950", 1, 1, 70},
	{"Moisés Caicedo", "Chelsea", "MF", "3,100", 1, 3, 130},
	{"Late Sub", "Chelsea", "FW", "45", 0, 0, 1},
}

func fbrefPage() string {
	heads := []string{"player", "nationality", "team", "position", "minutes", "goals", "assists", "progressive_passes"}
	var b strings.Builder
	b.WriteString(`<html><body><div id="content"><!--<table id="stats_standard"><thead><tr>`)
	for _, h := range heads {
		fmt.Fprintf(&b, `<th data-stat="%s">%s</th>`, h, h)
	}
	b.WriteString(`</tr></thead><tbody>`)
	for _, s := range squads {
		fmt.Fprintf(&b, `<tr><th data-stat="player">%s</th><td data-stat="nationality">eng ENG</td><td data-stat="team">%s</td>`+
			`<td data-stat="position">%s</td><td data-stat="minutes">%s</td><td data-stat="goals">%d</td>`+
			`<td data-stat="assists">%d</td><td data-stat="progressive_passes">%d</td></tr>`,
			s.name, s.team, s.pos, s.minutes, s.goals, s.assists, s.prgp)
	}
	b.WriteString(`</tbody></table>--></div></body></html>`)
	return b.String()
}

const marketPage = `<html><body><table class="items"><tbody>
<tr class="odd"><td class="hauptlink"><a>Bukayo Saka</a></td><td class="rechts hauptlink">€140.00m</td></tr>
<tr class="even"><td class="hauptlink"><a>Cole Palmer</a></td><td class="rechts hauptlink">€130.00m</td></tr>
<tr class="odd"><td class="hauptlink"><a>Martin Odegaard</a></td><td class="rechts hauptlink">€90.00m</td></tr>
</tbody></table></body></html>`

type routeFetcher struct{ calls int }

func (f *routeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.calls++
	if strings.Contains(url, "market.test") {
		return marketPage, nil
	}
	return fbrefPage(), nil
}

type fakeDDB struct {
	items   []map[string]types.AttributeValue
	updates []*dynamodb.UpdateItemInput
}

func (f *fakeDDB) BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	for _, reqs := range in.RequestItems {
		for _, r := range reqs {
			f.items = append(f.items, r.PutRequest.Item)
		}
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func (f *fakeDDB) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updates = append(f.updates, in)
	return &dynamodb.UpdateItemOutput{}, nil
}

type fakeS3 struct{ keys []string }

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if _, err := io.Copy(io.Discard, in.Body); err != nil {
		return nil, err
	}
	f.keys = append(f.keys, *in.Key)
	return &s3.PutObjectOutput{}, nil
}

type fakeAthena struct {
	queries []string
	failOn  string
}

func (f *fakeAthena) StartQueryExecution(ctx context.Context, in *athena.StartQueryExecutionInput, _ ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error) {
	f.queries = append(f.queries, *in.QueryString)
	return &athena.StartQueryExecutionOutput{QueryExecutionId: aws.String(fmt.Sprintf("q%d", len(f.queries)))}, nil
}

func (f *fakeAthena) GetQueryExecution(ctx context.Context, in *athena.GetQueryExecutionInput, _ ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error) {
	state := athtypes.QueryExecutionStateSucceeded
	if f.failOn != "" && strings.Contains(f.queries[len(f.queries)-1], f.failOn) {
		state = athtypes.QueryExecutionStateFailed
	}
	return &athena.GetQueryExecutionOutput{QueryExecution: &athtypes.QueryExecution{
		QueryExecutionId: in.QueryExecutionId,
		Status:           &athtypes.QueryExecutionStatus{State: state},
	}}, nil
}

func (f *fakeAthena) GetQueryResults(ctx context.Context, in *athena.GetQueryResultsInput, _ ...func(*athena.Options)) (*athena.GetQueryResultsOutput, error) {
	row := func(vals ...string) athtypes.Row {
		var r athtypes.Row
		for _, v := range vals {
			r.Data = append(r.Data, athtypes.Datum{VarCharValue: aws.String(v)})
		}
		return r
	}
	last := f.queries[len(f.queries)-1]
	rs := &athtypes.ResultSet{}
	switch {
	case strings.Contains(last, "COUNT(*)"):
		rs.Rows = []athtypes.Row{row("rows"), row("6")}
	default:
		rs.Rows = []athtypes.Row{row("stat", "team", "mean_value"), row("Goals", "Chelsea", "5.5")}
	}
	return &athena.GetQueryResultsOutput{ResultSet: rs}, nil
}

// ctasLocation returns the external_location of the last CTAS sent.
func ctasLocation(t *testing.T, queries []string) string {
	t.Helper()
	for i := len(queries) - 1; i >= 0; i-- {
		q := queries[i]
		if !strings.Contains(q, "CREATE TABLE") {
			continue
		}
		_, rest, ok := strings.Cut(q, "external_location = '")
		require.True(t, ok, "CTAS without external_location")
		loc, _, _ := strings.Cut(rest, "'")
		return loc
	}
	t.Fatal("no CTAS query sent")
	return ""
}

func testService(t *testing.T) (*Service, *routeFetcher) {
	t.Helper()
	t.Setenv("MODE", "")
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.OutDir = filepath.Join(t.TempDir(), "out")
	cfg.Transfers.URL = "https://market.test/values"
	cfg.Cluster.MaxK = 4
	cfg.AWS.AthenaPollMS = 1

	f := &routeFetcher{}
	svc := New(cfg, nil)
	svc.Fetcher = f
	return svc, f
}

func TestService_LocalJobs(t *testing.T) {
	svc, f := testService(t)
	ctx := context.Background()

	res, err := svc.Scrape(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 8, res.Players, "players at or under 90 minutes are dropped")
	calls := f.calls

	_, err = svc.Scrape(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, calls, f.calls, "second scrape is served from the cache")

	d, err := svc.Describe(ctx)
	require.NoError(t, err)
	best, ok := d.Leadership.Best()
	require.True(t, ok)
	assert.NotEmpty(t, best.Team)
	assert.Positive(t, d.Histograms)
	for _, name := range []string{TopBottomFile, SummaryFile, LeadershipDetailsFile, LeadershipCountsFile, TeamAnalysisFile} {
		assert.FileExists(t, svc.path(name))
	}

	a, err := svc.Cluster(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, a.Sweep.BestK, 2)
	for _, name := range []string{ClusterAssignmentsFile, ClusterExplanationFile} {
		assert.FileExists(t, svc.path(name))
	}

	tr, err := svc.Transfers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, tr.Eligible)
	assert.Equal(t, 3, tr.Known, "Saka, Palmer and the accent-insensitive Ødegaard match")

	vf, err := frame.ReadFile(svc.path(TransferValuesFile))
	require.NoError(t, err)
	assert.Equal(t, "Transfer_Value_Millions_EUR", vf.Header[5])
	assert.FileExists(t, svc.path(TransferExplainFile))
}

func TestService_PublishAndMaterialize(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	_, err := svc.Publish(ctx)
	require.ErrorIs(t, err, ErrNotConfigured)

	_, err = svc.Scrape(ctx, false)
	require.NoError(t, err)
	_, err = svc.Transfers(ctx)
	require.NoError(t, err)

	ddb, s3c, ath := &fakeDDB{}, &fakeS3{}, &fakeAthena{}
	svc.DDB, svc.S3, svc.Athena = ddb, s3c, ath
	svc.Cfg.AWS.TableName = "epl_players"
	svc.Cfg.AWS.CuratedBucket = "curated"
	svc.Cfg.AWS.AthenaOutput = "s3://results/"

	pub, err := svc.Publish(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, pub.Items)
	assert.Len(t, ddb.items, 8)
	assert.Len(t, ddb.updates, 8)
	assert.Equal(t, 8, pub.Transfers)
	require.Len(t, s3c.keys, 1)
	assert.True(t, strings.HasPrefix(s3c.keys[0], "epl_curated/player_stats/season=2024-2025/part-"))
	assert.Equal(t, svc.RunID, pub.RunID)

	mat, err := svc.Materialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), mat.RowCount)
	assert.Equal(t, "epl_curated.team_stat_means", mat.Table)
	assert.Equal(t, [][]string{{"Goals", "Chelsea", "5.5"}}, mat.Leaders)
	assert.Contains(t, ath.queries[0], "CREATE EXTERNAL TABLE IF NOT EXISTS epl_curated.player_stats")
	assert.Contains(t, ath.queries[0], "LOCATION 's3://curated/epl_curated/player_stats/'")
	first := ctasLocation(t, ath.queries)
	assert.Equal(t, "s3://curated/epl_curated/serve/team_stat_means/run="+svc.RunID+"/", first)

	// a later run must not reuse the previous CTAS location
	svc.RunID = "second-run"
	_, err = svc.Materialize(ctx)
	require.NoError(t, err)
	second := ctasLocation(t, ath.queries)
	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasSuffix(second, "/run=second-run/"))

	ath.failOn = "CREATE TABLE"
	_, err = svc.Materialize(ctx)
	assert.Error(t, err)
}

func TestService_RunFallsBackToModeEnv(t *testing.T) {
	svc, _ := testService(t)
	t.Setenv("MODE", " Scrape ")

	resp, err := svc.Run(context.Background(), "", false)
	require.NoError(t, err)
	assert.Equal(t, "scrape", resp.Mode)
	require.NotNil(t, resp.Scrape)
	assert.Equal(t, 8, resp.Scrape.Players)
	assert.Nil(t, resp.Transfers, "only the scrape job runs")
	assert.NoFileExists(t, svc.path(TopBottomFile))

	resp, err = svc.Run(context.Background(), "transfers", false)
	require.NoError(t, err)
	assert.Equal(t, "transfers", resp.Mode, "an explicit mode wins over MODE")
}

func TestService_RunModes(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	_, err := svc.Run(ctx, "bogus", false)
	assert.Error(t, err)

	_, err = svc.Run(ctx, "describe", false)
	assert.Error(t, err, "describe needs results.csv")
	_, statErr := os.Stat(svc.path(TopBottomFile))
	assert.True(t, errors.Is(statErr, os.ErrNotExist))

	resp, err := svc.Run(ctx, "", false)
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, "all", resp.Mode)
	assert.Equal(t, 8, resp.Scrape.Players)
	assert.NotEmpty(t, resp.BestTeam)
	assert.Nil(t, resp.Publish, "publish is skipped without AWS settings")
}
