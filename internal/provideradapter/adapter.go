// Package provideradapter defines the uniform contract every concrete
// debrid/Usenet/passthrough backend implements (spec.md §4.4), plus a
// service-tag registry so the gateway and coordinator can look an adapter
// up by the `service` string stored on a user's StreamingProvider.
package provideradapter

import (
	"context"

	"github.com/streamcore/aggregator/internal/fileselect"
)

// VideoRequest identifies the container and the file inside it to
// materialize a playable URL for.
type VideoRequest struct {
	InfoHash  string // torrent natural key
	NZBGUID   string // usenet natural key
	MagnetURI string
	Filename  string
	Season    int
	Episode   int
	UserIP    string

	// EpisodeHints maps a filename inside the container to season/episode
	// metadata already on file in the catalog (FileMediaLink), letting
	// fileselect.Select prefer stored metadata over its regex fallback
	// cascade (spec.md §4.4.1 step 2). Nil when nothing is stored.
	EpisodeHints map[string]EpisodeHint

	// OnFilesDiscovered, when set, is handed a container's full file list
	// as soon as an adapter obtains it, independent of which file this
	// particular request ultimately selects. It is the hook the playback
	// coordinator uses to drive opportunistic metadata back-fill
	// (spec.md §4.4.2).
	OnFilesDiscovered func(files []fileselect.File)
}

// EpisodeHint is one file's known season/episode, sourced from the
// catalog's FileMediaLink rows.
type EpisodeHint struct {
	Season  int
	Episode int
}

// EpisodeResolver adapts EpisodeHints into the closure fileselect.Select
// expects as its episodeResolver parameter, or nil when there are no
// hints to consult — matching Select's own "no resolver" fallback.
func (r VideoRequest) EpisodeResolver() func(filename string) (seasons, episodes []int) {
	if len(r.EpisodeHints) == 0 {
		return nil
	}
	return func(filename string) (seasons, episodes []int) {
		hint, ok := r.EpisodeHints[filename]
		if !ok {
			return nil, nil
		}
		return []int{hint.Season}, []int{hint.Episode}
	}
}

// NotifyFilesDiscovered calls OnFilesDiscovered if the caller set one.
func (r VideoRequest) NotifyFilesDiscovered(files []fileselect.File) {
	if r.OnFilesDiscovered != nil {
		r.OnFilesDiscovered(files)
	}
}

// StreamCacheProbe is one item passed to ProbeCache; Cached is filled in
// by the adapter.
type StreamCacheProbe struct {
	InfoHash string
	Cached   bool
}

// ValidationResult is returned by Validate at configuration-save time.
type ValidationResult struct {
	OK      bool
	Message string
}

// Adapter is the polymorphic contract spec.md §4.4 requires of every
// concrete provider: mint a playable URL, batch-probe instant
// availability, enumerate and clear a watchlist, and validate credentials.
type Adapter interface {
	// Service is the registry tag this adapter answers to (e.g. "realdebrid").
	Service() string
	GetVideoURL(ctx context.Context, req VideoRequest) (string, error)
	ProbeCache(ctx context.Context, probes []*StreamCacheProbe) error
	ListDownloaded(ctx context.Context) ([]string, error)
	DeleteAll(ctx context.Context) error
	Validate(ctx context.Context) ValidationResult
}

// Factory builds an Adapter from a user's stored token/config.
type Factory func(token string) Adapter

// Registry maps a service tag to the factory that builds its adapter.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(service string, factory Factory) {
	r.factories[service] = factory
}

// Build looks up the factory for service and constructs an Adapter bound
// to token, or false if the service tag is unknown.
func (r *Registry) Build(service, token string) (Adapter, bool) {
	factory, ok := r.factories[service]
	if !ok {
		return nil, false
	}
	return factory(token), true
}
