package materializer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildCTAS(t *testing.T) {
	sql := BuildCTAS("epl_curated", "2024-2025", "s3://bucket/serve/team_stat_means")
	assert.Contains(t, sql, "CREATE TABLE epl_curated.team_stat_means")
	assert.Contains(t, sql, "external_location = 's3://bucket/serve/team_stat_means/'")
	assert.Contains(t, sql, "partitioned_by = ARRAY['season']")
	assert.Equal(t, 2, strings.Count(sql, "season = '2024-2025'"))
	assert.Contains(t, sql, "FROM epl_curated.player_stats")

	// partition column must be selected last
	sel := sql[strings.LastIndex(sql, "SELECT"):]
	assert.Less(t, strings.Index(sel, "std_value"), strings.Index(sel, "  season\n"))
}

func TestBuilders_QuoteLiterals(t *testing.T) {
	assert.Equal(t, "DROP TABLE IF EXISTS db.team_stat_means", BuildDrop("db"))
	assert.Equal(t, "SELECT COUNT(*) AS rows FROM db.team_stat_means WHERE season = 'x''y'", BuildCount("db", "x'y"))
	assert.Equal(t, "MSCK REPAIR TABLE db.player_stats", BuildRepair("db"))

	src := BuildSourceTable("db", "s3://bucket/epl_curated/player_stats")
	assert.Contains(t, src, "LOCATION 's3://bucket/epl_curated/player_stats/'")
	assert.Contains(t, src, "PARTITIONED BY (season string)")

	leaders := BuildTeamLeaders("db", "2024-2025")
	assert.Contains(t, leaders, "ORDER BY mean_value DESC, team ASC")
	assert.Contains(t, leaders, "WHERE rn = 1")
}
