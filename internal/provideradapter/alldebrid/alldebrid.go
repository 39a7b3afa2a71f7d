// Package alldebrid adapts the AllDebrid magnet API to the uniform
// provideradapter.Adapter contract. The gjson ad-hoc field reads are kept
// from deflix-stremio's alldebrid client; the transport is switched to
// the teacher's resty client for consistency with the rest of this
// module's provider adapters.
package alldebrid

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/streamcore/aggregator/internal/fileselect"
	"github.com/streamcore/aggregator/internal/provideradapter"
	"github.com/streamcore/aggregator/internal/providerexception"
)

const serviceName = "alldebrid"

type Adapter struct {
	client *resty.Client
	apiKey string
}

func New(apiKey string) provideradapter.Adapter {
	client := resty.New().
		SetBaseURL("https://api.alldebrid.com/v4").
		SetQueryParam("agent", "streamcore").
		SetQueryParam("apikey", apiKey)
	return &Adapter{client: client, apiKey: apiKey}
}

func (a *Adapter) Service() string { return serviceName }

func (a *Adapter) get(ctx context.Context, path string, query map[string]string) (gjson.Result, error) {
	req := a.client.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	resp, err := req.Get(path)
	if err != nil {
		return gjson.Result{}, providerexception.New(providerexception.ClipDebridServiceDown, err.Error())
	}
	body := gjson.ParseBytes(resp.Body())
	if body.Get("status").String() != "success" {
		return gjson.Result{}, apiError(resp.StatusCode(), body)
	}
	return body, nil
}

func (a *Adapter) post(ctx context.Context, path string, form map[string]string) (gjson.Result, error) {
	resp, err := a.client.R().SetContext(ctx).SetFormData(form).Post(path)
	if err != nil {
		return gjson.Result{}, providerexception.New(providerexception.ClipDebridServiceDown, err.Error())
	}
	body := gjson.ParseBytes(resp.Body())
	if body.Get("status").String() != "success" {
		return gjson.Result{}, apiError(resp.StatusCode(), body)
	}
	return body, nil
}

func apiError(status int, body gjson.Result) error {
	msg := body.Get("error.message").String()
	code := body.Get("error.code").String()
	switch {
	case code == "AUTH_BAD_APIKEY" || code == "AUTH_MISSING_APIKEY":
		return providerexception.New(providerexception.ClipInvalidToken, msg)
	case code == "MAGNET_MUST_BE_PREMIUM" || code == "NO_SERVER":
		return providerexception.New(providerexception.ClipNeedPremium, msg)
	default:
		return providerexception.FromHTTPStatus(status, msg)
	}
}

// GetVideoURL uploads the magnet (idempotent — AllDebrid returns the same
// magnet ID for an already-known hash), polls status for ready links,
// selects the target file by size via fileselect, and unlocks the link.
func (a *Adapter) GetVideoURL(ctx context.Context, req provideradapter.VideoRequest) (string, error) {
	upload, err := a.post(ctx, "/magnet/upload", map[string]string{"magnets[]": req.MagnetURI})
	if err != nil {
		return "", err
	}

	magnetID := upload.Get("data.magnets.0.id").String()
	if magnetID == "" {
		return "", providerexception.New(providerexception.ClipAPIError, "no magnet id in upload response")
	}

	status, err := a.get(ctx, "/magnet/status", map[string]string{"id": magnetID})
	if err != nil {
		return "", err
	}

	links := status.Get("data.magnets.links").Array()
	if len(links) == 0 {
		return "", providerexception.New(providerexception.ClipTorrentNotDownloaded, "magnet has no ready links yet")
	}

	files := make([]fileselect.File, 0, len(links))
	for i, l := range links {
		files = append(files, fileselect.File{Index: i, Name: l.Get("filename").String(), Size: l.Get("size").Int()})
	}
	req.NotifyFilesDiscovered(files)

	selection, err := fileselect.Select(files, req.Filename, req.Season, req.Episode, req.EpisodeResolver())
	if err != nil {
		return "", err
	}

	link := links[selection.File.Index].Get("link").String()
	unlocked, err := a.get(ctx, "/link/unlock", map[string]string{"link": link})
	if err != nil {
		return "", err
	}
	return unlocked.Get("data.link").String(), nil
}

// ProbeCache annotates probes via AllDebrid's instant-availability endpoint.
func (a *Adapter) ProbeCache(ctx context.Context, probes []*provideradapter.StreamCacheProbe) error {
	if len(probes) == 0 {
		return nil
	}
	form := map[string]string{}
	for i, p := range probes {
		form[fmt.Sprintf("magnets[%d]", i)] = p.InfoHash
	}
	body, err := a.post(ctx, "/magnet/instant", form)
	if err != nil {
		return nil // non-fatal per contract
	}
	byHash := make(map[string]*provideradapter.StreamCacheProbe, len(probes))
	for _, p := range probes {
		byHash[strings.ToLower(p.InfoHash)] = p
	}
	for _, m := range body.Get("data.magnets").Array() {
		if !m.Get("instant").Bool() {
			continue
		}
		if p, ok := byHash[strings.ToLower(m.Get("hash").String())]; ok {
			p.Cached = true
		}
	}
	return nil
}

// ListDownloaded enumerates the user's stored magnets' info hashes.
func (a *Adapter) ListDownloaded(ctx context.Context) ([]string, error) {
	body, err := a.get(ctx, "/magnet/status", nil)
	if err != nil {
		return nil, err
	}
	var hashes []string
	for _, m := range body.Get("data.magnets").Array() {
		hashes = append(hashes, strings.ToLower(m.Get("hash").String()))
	}
	return hashes, nil
}

// DeleteAll removes every stored magnet from the user's account.
func (a *Adapter) DeleteAll(ctx context.Context) error {
	body, err := a.get(ctx, "/magnet/status", nil)
	if err != nil {
		return err
	}
	for _, m := range body.Get("data.magnets").Array() {
		id := m.Get("id").String()
		if _, err := a.get(ctx, "/magnet/delete", map[string]string{"id": id}); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the API key against the user-info endpoint.
func (a *Adapter) Validate(ctx context.Context) provideradapter.ValidationResult {
	_, err := a.get(ctx, "/user", nil)
	if err != nil {
		return provideradapter.ValidationResult{OK: false, Message: err.Error()}
	}
	return provideradapter.ValidationResult{OK: true}
}
