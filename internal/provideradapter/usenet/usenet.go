// Package usenet adapts a SABnzbd-compatible download client to the
// uniform provideradapter.Adapter contract. NZB parsing (to recover
// per-file sizes for fileselect) is grounded on godver3-strmr's playback
// service, which uses javi11/nzbparser the same way; the queue/history
// JSON API shape is SABnzbd's documented contract, the Usenet analogue of
// the teacher's torrent-focused provider clients.
package usenet

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/javi11/nzbparser"

	"github.com/streamcore/aggregator/internal/fileselect"
	"github.com/streamcore/aggregator/internal/provideradapter"
	"github.com/streamcore/aggregator/internal/providerexception"
)

const serviceName = "usenet"

// Adapter talks to a single SABnzbd-compatible instance. token is the
// instance's API key; host/category come from the user's provider config
// and are injected via WithHost/WithCategory at registration time.
type Adapter struct {
	client   *resty.Client
	category string
}

func New(apiKey string) provideradapter.Adapter {
	return &Adapter{client: resty.New().SetQueryParam("apikey", apiKey), category: "streamcore"}
}

// NewWithHost builds an adapter bound to an explicit SABnzbd base URL,
// used when the registry factory needs more than a bare token.
func NewWithHost(baseURL, apiKey, category string) provideradapter.Adapter {
	client := resty.New().SetBaseURL(strings.TrimRight(baseURL, "/")).SetQueryParam("apikey", apiKey)
	return &Adapter{client: client, category: category}
}

func (a *Adapter) Service() string { return serviceName }

type historySlot struct {
	NZOID      string `json:"nzo_id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	StorageDir string `json:"storage"`
	FailMsg    string `json:"fail_message"`
}

// GetVideoURL submits the NZB by URL, polls the queue until it lands in
// history, selects the target file from the parsed NZB's per-file sizes,
// and returns a path under the completed-download directory for the
// caller's WebDAV/media-flow layer to serve.
func (a *Adapter) GetVideoURL(ctx context.Context, req provideradapter.VideoRequest) (string, error) {
	nzoID, err := a.addURL(ctx, req.NZBGUID)
	if err != nil {
		return "", err
	}

	slot, err := a.waitUntilComplete(ctx, nzoID)
	if err != nil {
		return "", err
	}
	if slot.Status == "Failed" {
		return "", providerexception.New(providerexception.ClipAPIError, slot.FailMsg)
	}

	files := a.filesFromNZB(req.MagnetURI) // MagnetURI doubles as the raw NZB payload carrier for usenet requests
	if len(files) > 0 {
		req.NotifyFilesDiscovered(files)
		selection, err := fileselect.Select(files, req.Filename, req.Season, req.Episode, req.EpisodeResolver())
		if err != nil {
			return "", err
		}
		return joinPath(slot.StorageDir, selection.File.Name), nil
	}

	return slot.StorageDir, nil
}

func (a *Adapter) filesFromNZB(raw string) []fileselect.File {
	if raw == "" {
		return nil
	}
	parsed, err := nzbparser.Parse(bytes.NewReader([]byte(raw)))
	if err != nil {
		return nil
	}
	files := make([]fileselect.File, 0, len(parsed.Files))
	for i, f := range parsed.Files {
		var size int64
		for _, seg := range f.Segments {
			size += int64(seg.Bytes)
		}
		files = append(files, fileselect.File{Index: i, Name: f.Filename, Size: size})
	}
	return files
}

func joinPath(dir, name string) string {
	return strings.TrimRight(dir, "/") + "/" + name
}

func (a *Adapter) addURL(ctx context.Context, nzbURL string) (string, error) {
	var result struct {
		Status bool     `json:"status"`
		NZOIDs []string `json:"nzo_ids"`
	}
	resp, err := a.client.R().SetContext(ctx).
		SetQueryParams(map[string]string{
			"mode": "addurl", "name": nzbURL, "cat": a.category, "output": "json",
		}).
		SetResult(&result).Get("/sabnzbd/api")
	if err != nil {
		return "", providerexception.New(providerexception.ClipDebridServiceDown, err.Error())
	}
	if resp.IsError() || !result.Status || len(result.NZOIDs) == 0 {
		return "", providerexception.New(providerexception.ClipAPIError, "usenet client rejected nzb submission")
	}
	return result.NZOIDs[0], nil
}

func (a *Adapter) waitUntilComplete(ctx context.Context, nzoID string) (*historySlot, error) {
	deadline := time.Now().Add(30 * time.Minute)
	for time.Now().Before(deadline) {
		slot, inHistory, err := a.findInHistory(ctx, nzoID)
		if err != nil {
			return nil, err
		}
		if inHistory {
			return slot, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
	return nil, providerexception.New(providerexception.ClipTorrentNotDownloaded, "nzb did not finish downloading in time")
}

func (a *Adapter) findInHistory(ctx context.Context, nzoID string) (*historySlot, bool, error) {
	var result struct {
		History struct {
			Slots []historySlot `json:"slots"`
		} `json:"history"`
	}
	resp, err := a.client.R().SetContext(ctx).
		SetQueryParams(map[string]string{"mode": "history", "output": "json"}).
		SetResult(&result).Get("/sabnzbd/api")
	if err != nil {
		return nil, false, providerexception.New(providerexception.ClipDebridServiceDown, err.Error())
	}
	if resp.IsError() {
		return nil, false, providerexception.FromHTTPStatus(resp.StatusCode(), resp.String())
	}
	for i := range result.History.Slots {
		if result.History.Slots[i].NZOID == nzoID {
			return &result.History.Slots[i], true, nil
		}
	}
	return nil, false, nil
}

// ProbeCache has no meaning for a self-hosted usenet client: nothing is
// "instantly cached", every submission must download. Every probe is left
// unmarked.
func (a *Adapter) ProbeCache(_ context.Context, _ []*provideradapter.StreamCacheProbe) error {
	return nil
}

// ListDownloaded returns the filenames of everything finished in history.
func (a *Adapter) ListDownloaded(ctx context.Context) ([]string, error) {
	var result struct {
		History struct {
			Slots []historySlot `json:"slots"`
		} `json:"history"`
	}
	resp, err := a.client.R().SetContext(ctx).
		SetQueryParams(map[string]string{"mode": "history", "output": "json"}).
		SetResult(&result).Get("/sabnzbd/api")
	if err != nil {
		return nil, providerexception.New(providerexception.ClipDebridServiceDown, err.Error())
	}
	if resp.IsError() {
		return nil, providerexception.FromHTTPStatus(resp.StatusCode(), resp.String())
	}
	names := make([]string, 0, len(result.History.Slots))
	for _, s := range result.History.Slots {
		names = append(names, s.Name)
	}
	return names, nil
}

// DeleteAll removes every queue entry and history record, with their
// stored files.
func (a *Adapter) DeleteAll(ctx context.Context) error {
	if _, err := a.client.R().SetContext(ctx).
		SetQueryParams(map[string]string{"mode": "queue", "name": "delete", "value": "all", "output": "json"}).
		Get("/sabnzbd/api"); err != nil {
		return providerexception.New(providerexception.ClipDebridServiceDown, err.Error())
	}
	if _, err := a.client.R().SetContext(ctx).
		SetQueryParams(map[string]string{"mode": "history", "name": "delete", "value": "all", "del_files": "1", "output": "json"}).
		Get("/sabnzbd/api"); err != nil {
		return providerexception.New(providerexception.ClipDebridServiceDown, err.Error())
	}
	return nil
}

// Validate checks the API key against the version endpoint.
func (a *Adapter) Validate(ctx context.Context) provideradapter.ValidationResult {
	resp, err := a.client.R().SetContext(ctx).
		SetQueryParams(map[string]string{"mode": "version", "output": "json"}).
		Get("/sabnzbd/api")
	if err != nil {
		return provideradapter.ValidationResult{OK: false, Message: err.Error()}
	}
	if resp.IsError() {
		return provideradapter.ValidationResult{OK: false, Message: resp.String()}
	}
	return provideradapter.ValidationResult{OK: true}
}
