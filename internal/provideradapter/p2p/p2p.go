// Package p2p is the passthrough adapter for users who opt to stream
// directly via magnet URI with no debrid cloud in between. It implements
// the same Adapter contract as the cloud-backed providers so the rest of
// the pipeline (scraper, resolver, coordinator) never special-cases it.
package p2p

import (
	"context"

	"github.com/streamcore/aggregator/internal/provideradapter"
	"github.com/streamcore/aggregator/internal/providerexception"
)

const serviceName = "p2p"

type Adapter struct{}

// New ignores the token argument — p2p streaming needs no credentials.
func New(_ string) provideradapter.Adapter {
	return &Adapter{}
}

func (a *Adapter) Service() string { return serviceName }

// GetVideoURL returns the magnet URI itself; the player's own torrent
// engine resolves it.
func (a *Adapter) GetVideoURL(_ context.Context, req provideradapter.VideoRequest) (string, error) {
	if req.MagnetURI == "" {
		return "", providerexception.New(providerexception.ClipAPIError, "no magnet uri supplied for p2p playback")
	}
	return req.MagnetURI, nil
}

// ProbeCache is a no-op: p2p streams have no cloud-side cache state.
func (a *Adapter) ProbeCache(_ context.Context, _ []*provideradapter.StreamCacheProbe) error {
	return nil
}

// ListDownloaded always reports no managed downloads.
func (a *Adapter) ListDownloaded(_ context.Context) ([]string, error) {
	return nil, nil
}

// DeleteAll is a no-op: there is nothing stored remotely to clear.
func (a *Adapter) DeleteAll(_ context.Context) error {
	return nil
}

// Validate always succeeds: there is no credential to check.
func (a *Adapter) Validate(_ context.Context) provideradapter.ValidationResult {
	return provideradapter.ValidationResult{OK: true}
}
