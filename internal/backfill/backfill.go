// Package backfill implements opportunistic stream-metadata back-fill
// (spec.md §4.4.2): when a provider adapter hands back a container's full
// file list, annotate the catalog with whatever season/episode metadata
// filename parsing can recover, gated by a three-day per-info-hash lock so
// a popular stream isn't re-annotated on every playback. There is no
// teacher equivalent — k8v-streamx never persists anything — so this is
// grounded directly on fileselect's own fallback parser and the named-lock
// idiom internal/kvlock already establishes for the playback lock.
package backfill

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/streamcore/aggregator/internal/catalog"
	"github.com/streamcore/aggregator/internal/fileselect"
	"github.com/streamcore/aggregator/internal/kvlock"
)

// annotationLockTTL is the three-day cooldown spec.md §4.4.2 mandates
// between annotation attempts for the same info_hash. The lock is never
// released; its Redis TTL is the only thing that ever clears it.
const annotationLockTTL = 72 * time.Hour

type Coordinator struct {
	store  *catalog.Store
	locker *kvlock.Locker
	log    *zap.Logger
}

func New(store *catalog.Store, locker *kvlock.Locker, log *zap.Logger) *Coordinator {
	return &Coordinator{store: store, locker: locker, log: log}
}

// Observe is handed every file an adapter discovered while resolving one
// playback request for infoHash. It parses season/episode out of
// filenames the stored metadata is missing, upserts whatever it can
// determine, and — if this is a multi-video series torrent where nothing
// parses — logs an annotation request instead of retrying on every
// subsequent playback.
func (c *Coordinator) Observe(ctx context.Context, infoHash string, files []fileselect.File, requestedSeason int) {
	if len(files) == 0 {
		return
	}

	_, acquired, err := c.locker.AcquireNonBlocking(ctx, "annotation_"+infoHash, annotationLockTTL)
	if err != nil {
		c.log.Warn("annotation lock check failed", zap.Error(err), zap.String("infoHash", infoHash))
		return
	}
	if !acquired {
		return // already annotated within the last three days
	}
	// Deliberately never released: the TTL above is the three-day cooldown.

	video := fileselect.VideoFiles(files)
	discovered := make([]catalog.BackfillFile, 0, len(video))
	parsedAny := false
	for _, f := range video {
		bf := catalog.BackfillFile{Index: f.Index, Filename: f.Name, Size: f.Size}
		if season, episode, ok := fileselect.FallbackParseSeasonEpisode(f.Name, requestedSeason); ok {
			bf.Season, bf.Episode = season, episode
			parsedAny = true
		}
		discovered = append(discovered, bf)
	}

	if err := c.store.BackfillTorrentFiles(ctx, infoHash, discovered); err != nil {
		c.log.Warn("metadata back-fill failed", zap.Error(err), zap.String("infoHash", infoHash))
		return
	}

	if len(video) > 1 && !parsedAny {
		c.log.Info("annotation requested: no file in this series torrent matched a season/episode pattern",
			zap.String("infoHash", infoHash), zap.Int("fileCount", len(video)))
	}
}
