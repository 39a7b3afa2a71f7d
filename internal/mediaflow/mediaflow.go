// Package mediaflow wraps a resolved stream URL through an external
// MediaFlow proxy so the player authenticates against the proxy instead
// of the origin, and resolves the proxy's effective egress IP (needed
// when the caller's own address is private and a provider requires a
// public IP to mint a link). The freecache-backed short-TTL cache is
// grounded on the teacher's addon.go use of coocood/freecache for its
// download-URL cache.
package mediaflow

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/coocood/freecache"
	"github.com/go-resty/resty/v2"
)

const egressCacheTTLSeconds = 5 * 60

var contentTypeByExtension = map[string]string{
	".mkv":  "video/x-matroska",
	".mp4":  "video/mp4",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".m4v":  "video/x-m4v",
	".webm": "video/webm",
	".ts":   "video/mp2t",
}

// Config is the per-user MediaFlow configuration (spec.md's
// user_data.mediaflow_config).
type Config struct {
	ProxyURL string
	Password string
}

func (c Config) complete() bool {
	return c.ProxyURL != "" && c.Password != ""
}

type Proxy struct {
	cache  *freecache.Cache
	client *resty.Client
}

func New(cacheSizeBytes int) *Proxy {
	return &Proxy{
		cache:  freecache.NewCache(cacheSizeBytes),
		client: resty.New(),
	}
}

// WrapURL rewrites streamURL through the proxy, injecting a content-type
// hint derived from the file extension and the api_password query
// parameter. useMediaflow is the per-provider override that can suppress
// wrapping for providers that already return pre-proxied URLs.
func WrapURL(cfg Config, streamURL string, useMediaflow bool) string {
	if !useMediaflow || !cfg.complete() {
		return streamURL
	}

	proxied, err := url.Parse(strings.TrimRight(cfg.ProxyURL, "/") + "/proxy/stream")
	if err != nil {
		return streamURL
	}

	q := proxied.Query()
	q.Set("d", streamURL)
	q.Set("api_password", cfg.Password)
	if ct, ok := contentTypeByExtension[strings.ToLower(path.Ext(streamURL))]; ok {
		q.Set("mediaflow_proxy_mime_type", ct)
	}
	proxied.RawQuery = q.Encode()
	return proxied.String()
}

// EgressIP returns the proxy's outbound IP address, cached for five
// minutes per proxy-url+password identity so repeated private-IP
// fallbacks don't issue a fresh HTTP round trip each time.
func (p *Proxy) EgressIP(ctx context.Context, cfg Config) (string, error) {
	key := cacheKey(cfg)
	if cached, err := p.cache.Get(key); err == nil {
		return string(cached), nil
	}

	var result struct {
		IP string `json:"ip"`
	}
	resp, err := p.client.R().SetContext(ctx).
		SetQueryParam("api_password", cfg.Password).
		SetResult(&result).
		Get(strings.TrimRight(cfg.ProxyURL, "/") + "/proxy/ip")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", &proxyError{status: resp.StatusCode(), body: resp.String()}
	}

	_ = p.cache.Set(key, []byte(result.IP), egressCacheTTLSeconds)
	return result.IP, nil
}

func cacheKey(cfg Config) []byte {
	h := sha1.New()
	h.Write([]byte(cfg.ProxyURL))
	h.Write([]byte(cfg.Password))
	return []byte(hex.EncodeToString(h.Sum(nil)))
}

type proxyError struct {
	status int
	body   string
}

func (e *proxyError) Error() string {
	return "mediaflow: proxy returned " + strconv.Itoa(e.status) + ": " + e.body
}
