// Package userdata holds the decrypted, request-scoped configuration
// produced by unwrapping a secret_str envelope. It is immutable once
// constructed (spec.md §5 "Per-request data is immutable; no tasks mutate
// it"); handlers and downstream components only ever read from it.
package userdata

import "encoding/json"

// StreamingProvider is one configured debrid/Usenet/streaming backend.
type StreamingProvider struct {
	Service      string `json:"service"` // registry tag, e.g. "realdebrid", "alldebrid"
	Token        string `json:"token"`
	IsPrimary    bool   `json:"is_primary"`
	UseMediaflow bool   `json:"use_mediaflow"`
	WebdavURL    string `json:"webdav_url,omitempty"`
	WebdavUser   string `json:"webdav_user,omitempty"`
	WebdavPass   string `json:"webdav_pass,omitempty"`
}

// MediaFlowConfig is the MediaFlow proxy rewrite target and credentials.
type MediaFlowConfig struct {
	ProxyURL    string `json:"proxy_url"`
	APIPassword string `json:"api_password"`
}

func (m *MediaFlowConfig) Complete() bool {
	return m != nil && m.ProxyURL != "" && m.APIPassword != ""
}

// NewznabIndexer is one user-supplied Newznab-compatible Usenet indexer.
type NewznabIndexer struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	APIKey string `json:"api_key"`
}

// TorznabIndexer is one user-supplied Torznab-compatible torrent indexer.
type TorznabIndexer struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	APIKey string `json:"api_key"`
}

// CatalogSortPreference is a per-catalog sort-by/direction pair (§4.6).
type CatalogSortPreference struct {
	CatalogID string `json:"catalog_id"`
	SortBy    string `json:"sort_by"` // latest|popular|rating|year|title|release_date
	Direction string `json:"direction"`
}

// GroupingMode controls how per-category stream lists are combined (§4.2).
type GroupingMode string

const (
	GroupingSeparate GroupingMode = "separate"
	GroupingMixed    GroupingMode = "mixed"
)

// UserData is the full decrypted configuration envelope (spec.md §3).
type UserData struct {
	StreamingProviders []StreamingProvider `json:"streaming_providers"`
	MediaFlow          *MediaFlowConfig    `json:"mediaflow,omitempty"`

	RPDBKey    string `json:"rpdb_key,omitempty"`
	MDBListKey string `json:"mdblist_key,omitempty"`

	ContentFilters []string `json:"content_filters,omitempty"`

	CategoryOrder []string     `json:"category_order,omitempty"`
	Grouping      GroupingMode `json:"grouping,omitempty"`
	MaxStreams    int          `json:"max_streams,omitempty"`

	EnableUsenet    bool `json:"enable_usenet,omitempty"`
	EnableTelegram  bool `json:"enable_telegram,omitempty"`
	EnableAcestream bool `json:"enable_acestream,omitempty"`

	CatalogSort []CatalogSortPreference `json:"catalog_sort,omitempty"`

	TelegramBotToken string `json:"telegram_bot_token,omitempty"`

	NewznabIndexers []NewznabIndexer `json:"newznab_indexers,omitempty"`
	TorznabIndexers []TorznabIndexer `json:"torznab_indexers,omitempty"`

	UserID    string `json:"user_id,omitempty"`
	ProfileID string `json:"profile_id,omitempty"`
}

// Empty is the anonymous-user configuration used whenever a secret_str is
// missing or fails to decrypt (spec.md §4.1 — "never raise; downgrade").
func Empty() UserData {
	return UserData{
		CategoryOrder: []string{"torrent", "http", "usenet", "telegram", "acestream"},
		Grouping:      GroupingSeparate,
		MaxStreams:    50,
	}
}

// Decode parses a UserData from its JSON form, applying defaults for any
// zero-valued field the way the teacher's ApplyDefaults does.
func Decode(payload []byte) (UserData, error) {
	u := Empty()
	if len(payload) == 0 {
		return u, nil
	}
	if err := json.Unmarshal(payload, &u); err != nil {
		return Empty(), err
	}
	if len(u.CategoryOrder) == 0 {
		u.CategoryOrder = Empty().CategoryOrder
	}
	if u.Grouping == "" {
		u.Grouping = GroupingSeparate
	}
	if u.MaxStreams <= 0 {
		u.MaxStreams = 50
	}
	return u, nil
}

func (u UserData) Encode() ([]byte, error) {
	return json.Marshal(u)
}

// PrimaryProvider returns the user's primary streaming provider, or false
// if none is configured.
func (u UserData) PrimaryProvider() (StreamingProvider, bool) {
	for _, p := range u.StreamingProviders {
		if p.IsPrimary {
			return p, true
		}
	}
	if len(u.StreamingProviders) > 0 {
		return u.StreamingProviders[0], true
	}
	return StreamingProvider{}, false
}

// ProviderByService looks up a configured provider by its registry tag.
func (u UserData) ProviderByService(service string) (StreamingProvider, bool) {
	for _, p := range u.StreamingProviders {
		if p.Service == service {
			return p, true
		}
	}
	return StreamingProvider{}, false
}

// HasUsenetProvider reports whether any configured provider can serve
// Usenet-backed streams — required before the "usenet" category is
// enabled for a request (spec.md §4.2 step 3).
func (u UserData) HasUsenetProvider() bool {
	for _, p := range u.StreamingProviders {
		switch p.Service {
		case "usenet", "sabnzbd", "nzbget", "nzbdav", "easynews":
			return true
		}
	}
	return false
}
