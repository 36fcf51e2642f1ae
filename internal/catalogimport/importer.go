// Package catalogimport merges product feeds into the stored catalog.
//
// Feeds are read concurrently. A reference that appears in more than one feed
// is ambiguous and none of its records is imported. Detection runs in two
// passes: each feed gets a bloom filter of its references, then every
// reference is tested against the other feeds' filters and positives are
// confirmed exactly. Records without a reference get a fresh one; records
// whose reference is already in the catalog are left alone.
package catalogimport

import (
	"context"
	"sort"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/shopledger/internal/domain/directory"
	"github.com/xenking/shopledger/internal/domain/order"
	"github.com/xenking/shopledger/internal/domain/product"
	"github.com/xenking/shopledger/internal/storage/jsonfile"
)

const bloomFPR = 0.001

// Result summarizes an import.
type Result struct {
	Read      int
	Added     int
	Existing  int
	Invalid   int
	Conflicts []string
}

// Importer imports feeds into a product repository.
type Importer struct {
	repo product.Repository
	lg   *zap.Logger
}

// New returns an Importer writing to repo.
func New(repo product.Repository, lg *zap.Logger) *Importer {
	return &Importer{repo: repo, lg: lg}
}

// Import reads every feed, merges new products into the catalog, and saves
// it. Nothing is saved when a feed cannot be read.
func (im *Importer) Import(ctx context.Context, feeds []string) (*Result, error) {
	if len(feeds) == 0 {
		return nil, errors.New("no feeds given")
	}

	records, invalid, err := im.readFeeds(ctx, feeds)
	if err != nil {
		return nil, err
	}

	res := &Result{Invalid: invalid}
	for _, r := range records {
		res.Read += len(r)
	}

	conflicts := findConflicts(records)
	for ref := range conflicts {
		res.Conflicts = append(res.Conflicts, ref)
	}
	sort.Strings(res.Conflicts)

	existing, err := im.repo.LoadAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}
	dir := directory.New(order.NewBook())
	for _, err := range dir.LoadProducts(existing) {
		im.lg.Warn("Skipping stored product", zap.Error(err))
	}

	for i, feed := range records {
		for _, p := range feed {
			if conflicts[p.Reference] {
				continue
			}
			if p.Reference == "" {
				p.Reference = dir.NextProductRef()
			}
			if _, ok := dir.Product(p.Reference); ok {
				res.Existing++
				continue
			}
			if err := dir.AddProduct(&p); err != nil {
				return nil, errors.Wrapf(err, "feed %s", feeds[i])
			}
			res.Added++
		}
	}

	if res.Added > 0 {
		if err := im.repo.SaveAll(ctx, dir.ProductSnapshot()); err != nil {
			return nil, errors.Wrap(err, "save catalog")
		}
	}

	im.lg.Info("Import complete",
		zap.Int("feeds", len(feeds)),
		zap.Int("read", res.Read),
		zap.Int("added", res.Added),
		zap.Int("existing", res.Existing),
		zap.Int("invalid", res.Invalid),
		zap.Int("conflicts", len(res.Conflicts)),
	)
	return res, nil
}

// readFeeds reads all feeds concurrently, one slice per feed.
func (im *Importer) readFeeds(ctx context.Context, feeds []string) ([][]product.Product, int, error) {
	records := make([][]product.Product, len(feeds))
	invalid := make([]int, len(feeds))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range feeds {
		g.Go(func() error {
			skip := func(err error) {
				invalid[i]++
				im.lg.Warn("Skipping invalid feed record", zap.String("feed", path), zap.Error(err))
			}
			products, err := jsonfile.ReadProductFeed(ctx, path, skip)
			if err != nil {
				return err
			}
			im.lg.Info("Feed read", zap.String("feed", path), zap.Int("products", len(products)))
			records[i] = products
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	total := 0
	for _, n := range invalid {
		total += n
	}
	return records, total, nil
}

// findConflicts returns the non-empty references present in two or more
// feeds. A reference repeated inside a single feed is not a conflict.
func findConflicts(feeds [][]product.Product) map[string]bool {
	filters := make([]*bloom.BloomFilter, len(feeds))
	for i, feed := range feeds {
		filters[i] = bloom.NewWithEstimates(uint(max(len(feed), 1)), bloomFPR)
		for _, p := range feed {
			if p.Reference != "" {
				filters[i].AddString(p.Reference)
			}
		}
	}

	// Pass 1: candidates from the other feeds' filters.
	candidates := make(map[string]bool)
	for i, feed := range feeds {
		for _, p := range feed {
			if p.Reference == "" {
				continue
			}
			for j, f := range filters {
				if j != i && f.TestString(p.Reference) {
					candidates[p.Reference] = true
					break
				}
			}
		}
	}

	// Pass 2: confirm exactly, filters may report false positives.
	seen := make(map[string]int)
	for i, feed := range feeds {
		for _, p := range feed {
			if !candidates[p.Reference] {
				continue
			}
			if first, ok := seen[p.Reference]; !ok {
				seen[p.Reference] = i
			} else if first != i {
				seen[p.Reference] = -1
			}
		}
	}

	conflicts := make(map[string]bool)
	for ref, feed := range seen {
		if feed == -1 {
			conflicts[ref] = true
		}
	}
	return conflicts
}
