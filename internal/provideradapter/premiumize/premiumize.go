// Package premiumize adapts the Premiumize cloud API to the uniform
// provideradapter.Adapter contract. Field extraction via gjson and the
// directdl/cache-check endpoints are kept from deflix-stremio's
// premiumize client; transport moves to resty for consistency with the
// rest of this module's adapters.
package premiumize

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/streamcore/aggregator/internal/fileselect"
	"github.com/streamcore/aggregator/internal/provideradapter"
	"github.com/streamcore/aggregator/internal/providerexception"
)

const serviceName = "premiumize"

type Adapter struct {
	client *resty.Client
}

func New(apiKey string) provideradapter.Adapter {
	client := resty.New().
		SetBaseURL("https://www.premiumize.me/api").
		SetQueryParam("apikey", apiKey)
	return &Adapter{client: client}
}

func (a *Adapter) Service() string { return serviceName }

func (a *Adapter) do(ctx context.Context, method, path string, form map[string]string) (gjson.Result, error) {
	req := a.client.R().SetContext(ctx)
	var resp *resty.Response
	var err error
	switch method {
	case "GET":
		resp, err = req.Get(path)
	default:
		if form != nil {
			req.SetFormData(form)
		}
		resp, err = req.Post(path)
	}
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
	msg := body.Get("message").String()
	switch {
	case strings.Contains(strings.ToLower(msg), "not premium"):
		return providerexception.New(providerexception.ClipNeedPremium, msg)
	case status == 401 || status == 403:
		return providerexception.New(providerexception.ClipInvalidToken, msg)
	default:
		return providerexception.FromHTTPStatus(status, msg)
	}
}

// GetVideoURL submits the magnet to Premiumize's direct-download-link
// endpoint, which resolves cached magnets immediately into a flat file
// list, and selects the target file from it.
func (a *Adapter) GetVideoURL(ctx context.Context, req provideradapter.VideoRequest) (string, error) {
	body, err := a.do(ctx, "POST", "/transfer/directdl", map[string]string{"src": req.MagnetURI})
	if err != nil {
		return "", err
	}

	content := body.Get("content").Array()
	if len(content) == 0 {
		return "", providerexception.New(providerexception.ClipTorrentNotDownloaded, "no files in directdl response")
	}

	files := make([]fileselect.File, 0, len(content))
	for i, c := range content {
		files = append(files, fileselect.File{Index: i, Name: c.Get("path").String(), Size: c.Get("size").Int()})
	}
	req.NotifyFilesDiscovered(files)

	selection, err := fileselect.Select(files, req.Filename, req.Season, req.Episode, req.EpisodeResolver())
	if err != nil {
		return "", err
	}

	link := content[selection.File.Index].Get("link").String()
	if link == "" {
		return "", providerexception.New(providerexception.ClipNoMatchingFile, "selected file has no direct link")
	}
	return link, nil
}

// ProbeCache checks instant availability via the cache/check endpoint,
// which returns a parallel boolean array matching the submitted hashes.
func (a *Adapter) ProbeCache(ctx context.Context, probes []*provideradapter.StreamCacheProbe) error {
	if len(probes) == 0 {
		return nil
	}
	form := map[string]string{}
	for i, p := range probes {
		form[itemsKey(i)] = p.InfoHash
	}
	body, err := a.do(ctx, "POST", "/cache/check", form)
	if err != nil {
		return nil // non-fatal per contract
	}
	results := body.Get("response").Array()
	for i, r := range results {
		if i >= len(probes) {
			break
		}
		if r.Bool() {
			probes[i].Cached = true
		}
	}
	return nil
}

func itemsKey(i int) string {
	return "items[" + strconv.Itoa(i) + "]"
}

// ListDownloaded enumerates active and finished transfers.
func (a *Adapter) ListDownloaded(ctx context.Context) ([]string, error) {
	body, err := a.do(ctx, "GET", "/transfer/list", nil)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, t := range body.Get("transfers").Array() {
		names = append(names, t.Get("name").String())
	}
	return names, nil
}

// DeleteAll clears every transfer from the user's account.
func (a *Adapter) DeleteAll(ctx context.Context) error {
	body, err := a.do(ctx, "GET", "/transfer/list", nil)
	if err != nil {
		return err
	}
	for _, t := range body.Get("transfers").Array() {
		id := t.Get("id").String()
		if _, err := a.do(ctx, "POST", "/transfer/delete", map[string]string{"id": id}); err != nil {
			return err
		}
	}
	return nil
}

// Validate fetches account info to confirm the API key is accepted.
func (a *Adapter) Validate(ctx context.Context) provideradapter.ValidationResult {
	_, err := a.do(ctx, "GET", "/account/info", nil)
	if err != nil {
		return provideradapter.ValidationResult{OK: false, Message: err.Error()}
	}
	return provideradapter.ValidationResult{OK: true}
}
