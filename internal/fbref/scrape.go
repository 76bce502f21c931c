package fbref

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tyler180/epl-player-stats/internal/cache"
	"github.com/tyler180/epl-player-stats/internal/fetch"
	"github.com/tyler180/epl-player-stats/internal/logging"
)

// ErrNoPlayers is returned when neither the cache nor the site produced rows.
var ErrNoPlayers = errors.New("no player data scraped")

// Player is one merged row of results.csv.
type Player struct {
	Name   string
	Record Record
}

// Get returns the value of col, or N/a.
func (p Player) Get(col string) string {
	if col == PlayerCol {
		return p.Name
	}
	if v, ok := p.Record[col]; ok && v != "" {
		return v
	}
	return NA
}

// Scraper fetches every category page and merges the tables by player name.
type Scraper struct {
	Fetcher    fetch.Fetcher
	Cache      *cache.File[map[string]Record]
	BaseURL    string
	CompID     string
	CompSlug   string
	Workers    int
	Attempts   int
	RetryDelay time.Duration
	MinMinutes int
	Log        *zap.Logger

	// Categories overrides the default page list; used by tests.
	Categories []Category
}

func (s *Scraper) categories() []Category {
	if len(s.Categories) > 0 {
		return s.Categories
	}
	return Categories()
}

// ScrapeAll returns every player above the minutes threshold, sorted by first
// name. Unless force is set a non-empty cache short-circuits the fetch.
func (s *Scraper) ScrapeAll(ctx context.Context, force bool) ([]Player, error) {
	log := logging.OrNop(s.Log)

	if !force && s.Cache != nil {
		cached, found, err := s.Cache.Load()
		if err != nil {
			log.Warn("ignoring unreadable cache", zap.Error(err))
		} else if found && len(cached) > 0 {
			log.Info("using cached player data", zap.String("path", s.Cache.Path), zap.Int("players", len(cached)))
			return sortPlayers(fill(cached)), nil
		}
	}

	merged, err := s.scrapeMerged(ctx)
	if err != nil {
		return nil, err
	}

	filtered := map[string]Record{}
	for name, rec := range merged {
		if ParseMinutes(rec[MinutesRawKey]) > s.MinMinutes {
			filtered[name] = rec
		}
	}
	log.Info("filtered players", zap.Int("min_minutes", s.MinMinutes), zap.Int("players", len(filtered)))
	if len(filtered) == 0 {
		return nil, ErrNoPlayers
	}

	filtered = fill(filtered)
	if s.Cache != nil {
		if err := s.Cache.Save(filtered); err != nil {
			log.Warn("save cache", zap.Error(err))
		}
	}
	return sortPlayers(filtered), nil
}

func (s *Scraper) scrapeMerged(ctx context.Context) (map[string]Record, error) {
	log := logging.OrNop(s.Log)

	var mu sync.Mutex
	merged := map[string]Record{}

	workers := s.Workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, cat := range s.categories() {
		g.Go(func() error {
			table, err := s.scrapeTable(gctx, cat)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Error("category failed", zap.String("category", cat.Name), zap.Error(err))
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			for name, rec := range table {
				dst, ok := merged[name]
				if !ok {
					dst = Record{FirstNameCol: FirstName(name)}
					merged[name] = dst
				}
				for k, v := range rec {
					dst[k] = v
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scrape categories: %w", err)
	}
	return merged, nil
}

func (s *Scraper) scrapeTable(ctx context.Context, cat Category) (map[string]Record, error) {
	log := logging.OrNop(s.Log)
	url := cat.URL(s.BaseURL, s.CompID, s.CompSlug)
	attempts := s.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var table map[string]Record
	err := retry.Do(
		func() error {
			html, err := s.Fetcher.Fetch(ctx, url)
			if err != nil {
				return err
			}
			table, err = ParseTable(log, html, cat)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.Delay(s.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("table attempt failed", zap.String("url", url), zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("scrape %s after %d attempts: %w", url, attempts, err)
	}
	return table, nil
}

// fill gives every player the full column set, defaulting to N/a.
func fill(players map[string]Record) map[string]Record {
	cols := Columns()
	for name, rec := range players {
		if rec == nil {
			rec = Record{}
			players[name] = rec
		}
		if rec[FirstNameCol] == "" {
			rec[FirstNameCol] = FirstName(name)
		}
		for _, c := range cols[1:] {
			if v, ok := rec[c]; !ok || v == "" {
				rec[c] = NA
			}
		}
	}
	return players
}

func sortPlayers(players map[string]Record) []Player {
	out := make([]Player, 0, len(players))
	for name, rec := range players {
		out = append(out, Player{Name: name, Record: rec})
	}
	sort.SliceStable(out, func(i, j int) bool {
		fi, fj := out[i].Record[FirstNameCol], out[j].Record[FirstNameCol]
		if fi != fj {
			return fi < fj
		}
		return out[i].Name < out[j].Name
	})
	return out
}
