package materializer

import (
	"fmt"
	"strings"
)

const (
	// SourceTable is the long-format player_stats export.
	SourceTable = "player_stats"
	// TableName is the per-team stat means materialized from SourceTable.
	TableName = "team_stat_means"
)

func lit(s string) string { return "'" + strings.ReplaceAll(s, "'", "''") + "'" }

// BuildSourceTable registers the exported parquet under location
// (s3://bucket/prefix/player_stats/) partitioned by season.
func BuildSourceTable(db, location string) string {
	return fmt.Sprintf(`
CREATE EXTERNAL TABLE IF NOT EXISTS %s.%s (
  player     string,
  first_name string,
  team       string,
  position   string,
  nation     string,
  minutes    bigint,
  stat       string,
  value      double,
  run_id     string
)
PARTITIONED BY (season string)
STORED AS PARQUET
LOCATION %s`, db, SourceTable, lit(strings.TrimRight(location, "/")+"/"))
}

// BuildRepair loads partitions written since the last repair.
func BuildRepair(db string) string {
	return fmt.Sprintf(`MSCK REPAIR TABLE %s.%s`, db, SourceTable)
}

// BuildDrop returns a DROP TABLE IF EXISTS for the materialized table.
func BuildDrop(db string) string {
	return fmt.Sprintf(`DROP TABLE IF EXISTS %s.%s`, db, TableName)
}

// BuildCTAS materializes per-team stat moments for one season. Only the
// newest export file of the season is read; part file names carry a UTC
// timestamp so the greatest $path is the latest run.
func BuildCTAS(db, season, outputLocation string) string {
	return fmt.Sprintf(`
CREATE TABLE %s.%s
WITH (
  format = 'PARQUET',
  external_location = %s,
  partitioned_by = ARRAY['season']
) AS
WITH latest AS (
  SELECT team, stat, value, season
  FROM %s.%s
  WHERE season = %s
    AND "$path" = (SELECT MAX("$path") FROM %s.%s WHERE season = %s)
)
SELECT
  -- non-partition columns FIRST:
  team,
  stat,
  COUNT(value)                           AS players,
  ROUND(AVG(value), 4)                   AS mean_value,
  ROUND(APPROX_PERCENTILE(value, 0.5), 4) AS median_value,
  ROUND(STDDEV_SAMP(value), 4)           AS std_value,
  -- partition column LAST:
  season
FROM latest
WHERE value IS NOT NULL
GROUP BY team, stat, season
`, db, TableName, lit(strings.TrimRight(outputLocation, "/")+"/"),
		db, SourceTable, lit(season), db, SourceTable, lit(season))
}

// BuildCount counts materialized rows for a season.
func BuildCount(db, season string) string {
	return fmt.Sprintf(`SELECT COUNT(*) AS rows FROM %s.%s WHERE season = %s`, db, TableName, lit(season))
}

// BuildTeamLeaders returns, per stat, the team with the highest mean.
// Ties go to the alphabetically first team.
func BuildTeamLeaders(db, season string) string {
	return fmt.Sprintf(`
SELECT stat, team, mean_value
FROM (
  SELECT
    stat, team, mean_value,
    ROW_NUMBER() OVER (PARTITION BY stat ORDER BY mean_value DESC, team ASC) AS rn
  FROM %s.%s
  WHERE season = %s
)
WHERE rn = 1
ORDER BY stat`, db, TableName, lit(season))
}
