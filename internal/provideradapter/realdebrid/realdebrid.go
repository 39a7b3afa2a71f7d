// Package realdebrid adapts the RealDebrid cloud API to the uniform
// provideradapter.Adapter contract. The HTTP client construction, magnet
// submission and file-selection flow are kept directly from the teacher's
// internal/debrid/realdebrid client; submit/poll/select/mint has been
// generalized into the GetVideoURL contract and the retry loop replaced
// with avast/retry-go/v4 instead of a hand-rolled status check.
package realdebrid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/go-resty/resty/v2"

	"github.com/streamcore/aggregator/internal/fileselect"
	"github.com/streamcore/aggregator/internal/provideradapter"
	"github.com/streamcore/aggregator/internal/providerexception"
)

const serviceName = "realdebrid"

var (
	errNoTorrentFound  = errors.New("realdebrid: no torrent found")
	errNoFileFound     = errors.New("realdebrid: no file found")
	errTorrentNotReady = errors.New("realdebrid: torrent is not ready yet")
)

type Adapter struct {
	client *resty.Client
}

// New builds a RealDebrid adapter bound to one user's API token. It
// satisfies provideradapter.Factory.
func New(token string) provideradapter.Adapter {
	client := resty.New().
		SetBaseURL("https://api.real-debrid.com/rest/1.0").
		SetHeader("Accept", "application/json").
		SetAuthScheme("Bearer").
		SetError(errorResponse{}).
		SetAuthToken(token)
	return &Adapter{client: client}
}

func (a *Adapter) Service() string { return serviceName }

type torrent struct {
	ID       string        `json:"id"`
	Hash     string        `json:"hash"`
	Status   string        `json:"status"`
	Files    []torrentFile `json:"files"`
	Links    []string      `json:"links"`
}

type torrentFile struct {
	ID       int    `json:"id"`
	Path     string `json:"path"`
	Selected int    `json:"selected"`
	Bytes    int64  `json:"bytes"`
}

type addMagnetResponse struct {
	ID string `json:"id"`
}

type unrestrictedLinkResponse struct {
	Download string `json:"download"`
}

type errorResponse struct {
	ErrTxt    string `json:"error"`
	ErrorCode int    `json:"error_code"`
}

func (e errorResponse) Error() string { return fmt.Sprintf("[%s,%d]", e.ErrTxt, e.ErrorCode) }

// GetVideoURL submits the magnet if not already present, polls until the
// torrent finishes downloading, selects the target file with fileselect,
// and mints an unrestricted download link.
func (a *Adapter) GetVideoURL(ctx context.Context, req provideradapter.VideoRequest) (string, error) {
	t, err := a.findOrAddTorrent(ctx, req.InfoHash, req.MagnetURI)
	if err != nil {
		return "", err
	}

	t, err = a.waitUntilReady(ctx, t)
	if err != nil {
		return "", err
	}

	files := make([]fileselect.File, 0, len(t.Files))
	for _, f := range t.Files {
		files = append(files, fileselect.File{Index: f.ID, Name: f.Path, Size: f.Bytes})
	}
	req.NotifyFilesDiscovered(files)

	selection, err := fileselect.Select(files, req.Filename, req.Season, req.Episode, req.EpisodeResolver())
	if err != nil {
		return "", err
	}

	linkIndex := selectedLinkIndex(t, selection.File.Index)
	if linkIndex == -1 || linkIndex >= len(t.Links) {
		return "", providerexception.New(providerexception.ClipNoMatchingFile, "no hoster link for selected file")
	}

	return a.generateDownload(ctx, t.Links[linkIndex])
}

func (a *Adapter) waitUntilReady(ctx context.Context, t *torrent) (*torrent, error) {
	if t.Status == "waiting_files_selection" {
		if err := a.selectAllFiles(ctx, t.ID); err != nil {
			return nil, err
		}
	}

	err := retry.Do(
		func() error {
			current, err := a.getTorrentInfo(ctx, t.ID)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			t = current
			if t.Status == "downloaded" {
				return nil
			}
			if t.Status == "waiting_files_selection" {
				if err := a.selectAllFiles(ctx, t.ID); err != nil {
					return retry.Unrecoverable(err)
				}
			}
			return errTorrentNotReady
		},
		retry.Context(ctx),
		retry.Attempts(20),
		retry.Delay(3*time.Second),
		retry.MaxDelay(10*time.Second),
	)
	if err != nil {
		return nil, providerexception.New(providerexception.ClipTorrentNotDownloaded, "torrent did not finish downloading in time")
	}
	return t, nil
}

func (a *Adapter) findOrAddTorrent(ctx context.Context, infoHash, magnetURI string) (*torrent, error) {
	existing, err := a.findByInfoHash(ctx, infoHash)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, errNoTorrentFound) {
		return nil, err
	}

	id, err := a.addMagnet(ctx, magnetURI)
	if err != nil {
		return nil, err
	}
	return a.getTorrentInfo(ctx, id)
}

func (a *Adapter) findByInfoHash(ctx context.Context, infoHash string) (*torrent, error) {
	var torrents []torrent
	resp, err := a.client.R().SetContext(ctx).SetResult(&torrents).
		SetQueryParam("limit", "200").SetQueryParam("filter", "active").
		Get("/torrents")
	if err != nil {
		return nil, mapTransportError(err)
	}
	if resp.IsError() {
		return nil, mapAPIError(resp)
	}
	for _, t := range torrents {
		if strings.EqualFold(t.Hash, infoHash) {
			cp := t
			return &cp, nil
		}
	}
	return nil, errNoTorrentFound
}

func (a *Adapter) addMagnet(ctx context.Context, magnetURI string) (string, error) {
	var result addMagnetResponse
	resp, err := a.client.R().SetContext(ctx).
		SetFormData(map[string]string{"magnet": magnetURI}).
		SetResult(&result).
		Post("/torrents/addMagnet")
	if err != nil {
		return "", mapTransportError(err)
	}
	if resp.IsError() {
		return "", mapAPIError(resp)
	}
	return result.ID, nil
}

func (a *Adapter) getTorrentInfo(ctx context.Context, id string) (*torrent, error) {
	var t torrent
	resp, err := a.client.R().SetContext(ctx).SetResult(&t).Get("/torrents/info/" + id)
	if err != nil {
		return nil, mapTransportError(err)
	}
	if resp.IsError() {
		return nil, mapAPIError(resp)
	}
	return &t, nil
}

func (a *Adapter) selectAllFiles(ctx context.Context, id string) error {
	resp, err := a.client.R().SetContext(ctx).
		SetFormData(map[string]string{"files": "all"}).
		Post("/torrents/selectFiles/" + id)
	if err != nil {
		return mapTransportError(err)
	}
	if resp.IsError() {
		return mapAPIError(resp)
	}
	return nil
}

func (a *Adapter) generateDownload(ctx context.Context, hosterLink string) (string, error) {
	var result unrestrictedLinkResponse
	resp, err := a.client.R().SetContext(ctx).
		SetFormData(map[string]string{"link": hosterLink}).
		SetResult(&result).
		Post("/unrestrict/link")
	if err != nil {
		return "", mapTransportError(err)
	}
	if resp.IsError() {
		return "", mapAPIError(resp)
	}
	return result.Download, nil
}

func selectedLinkIndex(t *torrent, fileID int) int {
	index := 0
	for _, f := range t.Files {
		if f.ID == fileID {
			if f.Selected > 0 {
				return index
			}
			return -1
		}
		if f.Selected > 0 {
			index++
		}
	}
	return -1
}

// ProbeCache annotates each probe with instant-availability via RealDebrid's
// batch endpoint, chunking at 80 hashes per the provider's documented limit.
func (a *Adapter) ProbeCache(ctx context.Context, probes []*provideradapter.StreamCacheProbe) error {
	const batchSize = 80
	byHash := make(map[string]*provideradapter.StreamCacheProbe, len(probes))
	hashes := make([]string, 0, len(probes))
	for _, p := range probes {
		byHash[strings.ToLower(p.InfoHash)] = p
		hashes = append(hashes, p.InfoHash)
	}

	for start := 0; start < len(hashes); start += batchSize {
		end := start + batchSize
		if end > len(hashes) {
			end = len(hashes)
		}
		chunk := hashes[start:end]

		var raw map[string]json.RawMessage
		resp, err := a.client.R().SetContext(ctx).SetResult(&raw).
			Get("/torrents/instantAvailability/" + strings.Join(chunk, "/"))
		if err != nil {
			return nil // non-fatal per contract
		}
		if resp.IsError() {
			continue
		}
		for hash := range raw {
			if p, ok := byHash[strings.ToLower(hash)]; ok {
				p.Cached = true
			}
		}
	}
	return nil
}

// ListDownloaded returns the info_hash of every active torrent, used for
// watchlist catalog synthesis.
func (a *Adapter) ListDownloaded(ctx context.Context) ([]string, error) {
	var torrents []torrent
	resp, err := a.client.R().SetContext(ctx).SetResult(&torrents).
		SetQueryParam("limit", "2500").
		Get("/torrents")
	if err != nil {
		return nil, mapTransportError(err)
	}
	if resp.IsError() {
		return nil, mapAPIError(resp)
	}
	hashes := make([]string, 0, len(torrents))
	for _, t := range torrents {
		hashes = append(hashes, strings.ToLower(t.Hash))
	}
	return hashes, nil
}

// DeleteAll removes every torrent from the user's RealDebrid account,
// driving the "Delete All Watchlist" menu entry.
func (a *Adapter) DeleteAll(ctx context.Context) error {
	var torrents []torrent
	resp, err := a.client.R().SetContext(ctx).SetResult(&torrents).Get("/torrents")
	if err != nil {
		return mapTransportError(err)
	}
	if resp.IsError() {
		return mapAPIError(resp)
	}
	for _, t := range torrents {
		if _, err := a.client.R().SetContext(ctx).Delete("/torrents/delete/" + t.ID); err != nil {
			return mapTransportError(err)
		}
	}
	return nil
}

// Validate calls the user's account endpoint to check the token works.
func (a *Adapter) Validate(ctx context.Context) provideradapter.ValidationResult {
	resp, err := a.client.R().SetContext(ctx).Get("/user")
	if err != nil {
		return provideradapter.ValidationResult{OK: false, Message: err.Error()}
	}
	if resp.IsError() {
		return provideradapter.ValidationResult{OK: false, Message: resp.String()}
	}
	return provideradapter.ValidationResult{OK: true}
}

func mapTransportError(err error) error {
	return providerexception.New(providerexception.ClipDebridServiceDown, err.Error())
}

func mapAPIError(resp *resty.Response) error {
	status := resp.StatusCode()
	switch status {
	case 401, 403:
		return providerexception.New(providerexception.ClipInvalidToken, "invalid or expired token")
	case 429:
		return providerexception.New(providerexception.ClipTooManyRequests, "too many requests")
	default:
		if errResp, ok := resp.Error().(*errorResponse); ok && errResp != nil {
			return providerexception.FromHTTPStatus(status, errResp.Error())
		}
		return providerexception.FromHTTPStatus(status, strconv.Itoa(status))
	}
}
