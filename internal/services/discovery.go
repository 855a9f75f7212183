package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/parallaxdata/transcript-ingester/internal/models"
	"github.com/parallaxdata/transcript-ingester/internal/store"
	"google.golang.org/api/iterator"
)

// Recognized extensions of a transcript pair's two members.
const (
	extStructured = ".json"
	extText       = ".txt"
)

// Discovery scans a key prefix and groups the objects under it into
// complete transcript pairs by shared base name.
type Discovery struct {
	store  store.ObjectStore
	logger *slog.Logger
}

// NewDiscovery creates a Discovery reading from st.
func NewDiscovery(st store.ObjectStore, logger *slog.Logger) *Discovery {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discovery{store: st, logger: logger}
}

// Discover lists every object under prefix and returns the complete
// pairs, sorted by base key. A base key with only one member present is
// logged as incomplete and excluded. Objects with unrecognized
// extensions are ignored. Any listing error aborts the whole discovery:
// no partial pair set is ever returned alongside a dropped error.
func (d *Discovery) Discover(ctx context.Context, prefix string) ([]models.Pair, error) {
	type group struct {
		structuredKey string
		textKey       string
	}
	groups := make(map[string]*group)

	it := d.store.List(ctx, prefix)
	for {
		info, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			d.logger.Error("Listing failed during pair discovery", "prefix", prefix, "error", err)
			return nil, fmt.Errorf("failed to list objects under %s: %w", prefix, err)
		}

		key := info.Key
		var base string
		structured := false
		switch {
		case strings.HasSuffix(key, extStructured):
			base = strings.TrimSuffix(key, extStructured)
			structured = true
		case strings.HasSuffix(key, extText):
			base = strings.TrimSuffix(key, extText)
		default:
			continue
		}

		g := groups[base]
		if g == nil {
			g = &group{}
			groups[base] = g
		}
		if structured {
			g.structuredKey = key
		} else {
			g.textKey = key
		}
	}

	bases := make([]string, 0, len(groups))
	for base := range groups {
		bases = append(bases, base)
	}
	sort.Strings(bases)

	var pairs []models.Pair
	for _, base := range bases {
		g := groups[base]
		if g.structuredKey == "" || g.textKey == "" {
			missing := extText
			if g.structuredKey == "" {
				missing = extStructured
			}
			d.logger.Warn("Incomplete pair excluded from discovery", "baseKey", base, "missing", missing)
			continue
		}
		pairs = append(pairs, models.Pair{
			BaseKey:       base,
			StructuredKey: g.structuredKey,
			TextKey:       g.textKey,
		})
	}

	d.logger.Info("Pair discovery complete.", "prefix", prefix, "pairCount", len(pairs))
	return pairs, nil
}
