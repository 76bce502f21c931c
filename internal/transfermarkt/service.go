package transfermarkt

import (
	"context"

	"go.uber.org/zap"

	"github.com/tyler180/epl-player-stats/internal/cache"
	"github.com/tyler180/epl-player-stats/internal/fetch"
	"github.com/tyler180/epl-player-stats/internal/logging"
)

const DefaultURL = "https://www.transfermarkt.com/premier-league/marktwerte/wettbewerb/GB1"

// Valuer resolves market values for players, reading through a JSON cache.
type Valuer struct {
	Fetcher fetch.Fetcher
	Cache   *cache.File[map[string]*float64]
	URL     string
	Matcher Matcher
	Log     *zap.Logger
}

// Values returns a value (millions EUR, nil = unknown) for every player.
// Only players missing from the cache trigger a page fetch. A failed fetch
// marks the remaining players unknown rather than failing the run.
func (v *Valuer) Values(ctx context.Context, players []string) (map[string]*float64, error) {
	log := logging.OrNop(v.Log)

	known := map[string]*float64{}
	if v.Cache != nil {
		cached, found, err := v.Cache.Load()
		if err != nil {
			log.Warn("ignoring unreadable transfer cache", zap.Error(err))
		} else if found && cached != nil {
			known = cached
		}
	}

	var todo []string
	for _, p := range players {
		if _, ok := known[p]; !ok {
			todo = append(todo, p)
		}
	}
	log.Info("transfer values",
		zap.Int("players", len(players)),
		zap.Int("cached", len(players)-len(todo)),
		zap.Int("to_scrape", len(todo)))

	if len(todo) > 0 {
		listings, err := v.listings(ctx)
		if err != nil {
			log.Warn("market value page unavailable; marking players unknown", zap.Error(err))
		}
		matched := 0
		for _, p := range todo {
			l, ok := v.Matcher.Match(p, listings)
			if !ok {
				known[p] = nil
				continue
			}
			known[p] = l.Value
			matched++
			log.Debug("matched", zap.String("player", p), zap.String("listing", l.Name))
		}
		log.Info("transfer matching done", zap.Int("matched", matched), zap.Int("unknown", len(todo)-matched))

		if v.Cache != nil {
			if err := v.Cache.Save(known); err != nil {
				return nil, err
			}
		}
	}

	out := make(map[string]*float64, len(players))
	for _, p := range players {
		out[p] = known[p]
	}
	return out, nil
}

func (v *Valuer) listings(ctx context.Context) ([]Listing, error) {
	url := v.URL
	if url == "" {
		url = DefaultURL
	}
	html, err := v.Fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return ParseListings(html)
}
