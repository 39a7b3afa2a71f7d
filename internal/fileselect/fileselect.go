// Package fileselect picks the right file out of a multi-file
// torrent/NZB container: an exact filename match, a season/episode
// pattern cascade with hash-false-positive rejection, an air-date
// fallback, and finally the largest video file. It is the Go
// equivalent of select_file_index_from_torrent and its supporting
// fallback parser.
package fileselect

import (
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/streamcore/aggregator/internal/providerexception"
)

var videoExtensions = map[string]bool{
	".mkv": true, ".mp4": true, ".avi": true, ".mov": true,
	".wmv": true, ".flv": true, ".webm": true, ".m4v": true, ".ts": true,
}

// File is one entry inside a torrent/NZB container.
type File struct {
	Index int
	Name  string
	Size  int64
}

// IsVideo reports whether File's name has a recognised video extension.
func (f File) IsVideo() bool {
	ext := strings.ToLower(path.Ext(f.Name))
	return videoExtensions[ext]
}

// baseName strips any directory components, matching Python's basename.
func baseName(name string) string {
	return path.Base(strings.ReplaceAll(name, "\\", "/"))
}

type seasonEpisodeExtractor func(groups []string, defaultSeason int) (season, episode int)

type seasonEpisodePattern struct {
	name      string
	re        *regexp.Regexp
	extract   seasonEpisodeExtractor
	hashCheck bool // apply is_likely_hash rejection to this pattern's match
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// seasonEpisodePatterns mirrors SEASON_EPISODE_PATTERNS, ordered from most
// reliable to least reliable.
var seasonEpisodePatterns = []seasonEpisodePattern{
	{"standard", regexp.MustCompile(`(?i)[sS](\d{1,2})[eE](\d{1,2})`),
		func(g []string, _ int) (int, int) { return atoi(g[1]), atoi(g[2]) }, false},
	{"separator_x", regexp.MustCompile(`(?i)(?:^|[^\w])(\d{1,2})[xX](\d{1,2})(?:[^\w]|$)`),
		func(g []string, _ int) (int, int) { return atoi(g[1]), atoi(g[2]) }, false},
	{"text_based", regexp.MustCompile(`(?i)season\s+(\d{1,2}).*?episode\s+(\d{1,2})`),
		func(g []string, _ int) (int, int) { return atoi(g[1]), atoi(g[2]) }, false},
	{"season_ep", regexp.MustCompile(`(?i)(?:season|series)[.\s-]*(\d{1,2}).*?(?:ep|episode)?[.\s-]*(\d{1,2})`),
		func(g []string, _ int) (int, int) { return atoi(g[1]), atoi(g[2]) }, false},
	{"no_separator", regexp.MustCompile(`(?i)S(\d{1,2})E(\d{1,2})`),
		func(g []string, _ int) (int, int) { return atoi(g[1]), atoi(g[2]) }, false},
	{"simple_episode", regexp.MustCompile(`(?:\s)(\d{1,2})(?:\s|$|\.)`),
		func(g []string, s int) (int, int) { return s, atoi(g[1]) }, true},
	{"bracketed", regexp.MustCompile(`(?i)[\[(]s?(\d{1,2})[.\s]?[ex](\d{1,2})[\])]`),
		func(g []string, _ int) (int, int) { return atoi(g[1]), atoi(g[2]) }, false},
	{"period_sep", regexp.MustCompile(`(?:^|[^\d\w])(\d{1,2})\.(\d{2})(?:[^\d\w]|$)`),
		func(g []string, _ int) (int, int) { return atoi(g[1]), atoi(g[2]) }, false},
	{"episode_only", regexp.MustCompile(`(?i)[_-]e(?:p)?(\d{1,2})`),
		func(g []string, s int) (int, int) { return s, atoi(g[1]) }, false},
	{"absolute_ep", regexp.MustCompile(`(?i)ep(?:isode)?[.\s](\d{1,3})(?:\D|$)`),
		func(g []string, s int) (int, int) { return s, atoi(g[1]) }, false},
	{"zero_padded", regexp.MustCompile(`(?:^|\D)(\d{2,})(?:\D|$)`),
		func(g []string, s int) (int, int) { return s, atoi(g[1]) }, false},
}

var animeStandaloneEpisode = regexp.MustCompile(`(?:^|\s|\[|\()(\d{1,2})(?:\s|$|\]|\))`)

// isLikelyHash reports whether a matched substring looks like part of a
// hash (a hex-bearing token, or long bracketed alphanumeric content)
// rather than an actual episode number.
func isLikelyHash(matchStr, filename string) bool {
	pos := strings.Index(filename, matchStr)
	if pos == -1 {
		return false
	}

	bracket := regexp.MustCompile(`\[[^\]]*` + regexp.QuoteMeta(matchStr) + `[^\[]*\]`)
	if loc := bracket.FindString(filename); loc != "" {
		if len(loc) > 10 && strings.IndexFunc(loc, func(r rune) bool {
			return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		}) >= 0 {
			return true
		}
	}

	for _, r := range matchStr {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}

var videoExtSuffix = regexp.MustCompile(`(?i)\.(mkv|mp4|avi|mov|wmv|flv)$`)

// FallbackParseSeasonEpisode is the last-resort filename parser used when
// the richer titleparser chain found nothing — it walks the ordered
// pattern cascade, rejecting matches that look like hash fragments, falling
// through to anime-style standalone episode numbers as a final resort.
func FallbackParseSeasonEpisode(filename string, defaultSeason int) (season, episode int, ok bool) {
	base := videoExtSuffix.ReplaceAllString(baseName(filename), "")

	for _, p := range seasonEpisodePatterns {
		loc := p.re.FindStringSubmatchIndex(base)
		if loc == nil {
			continue
		}
		match := base[loc[0]:loc[1]]
		if p.hashCheck && isLikelyHash(match, base) {
			continue
		}
		groups := make([]string, len(loc)/2)
		for i := range groups {
			if loc[2*i] >= 0 {
				groups[i] = base[loc[2*i]:loc[2*i+1]]
			}
		}
		s, e := p.extract(groups, defaultSeason)
		return s, e, true
	}

	for _, loc := range animeStandaloneEpisode.FindAllStringSubmatchIndex(base, -1) {
		match := base[loc[0]:loc[1]]
		if isLikelyHash(match, base) {
			continue
		}
		if loc[0] <= 5 {
			continue
		}
		num := atoi(base[loc[2]:loc[3]])
		if num >= 100 {
			continue
		}
		return defaultSeason, num, true
	}

	return 0, 0, false
}

// Selection is the outcome of picking one file from a container.
type Selection struct {
	File   File
	Season int
	Episode int
}

// ByExactName returns the file whose base name matches exactly, mirroring
// the "quick filename match" fast path taken before any further processing.
func ByExactName(files []File, filename string) (File, bool) {
	for _, f := range files {
		if baseName(f.Name) == filename {
			return f, true
		}
	}
	return File{}, false
}

// VideoFiles filters files down to recognised video containers.
func VideoFiles(files []File) []File {
	out := make([]File, 0, len(files))
	for _, f := range files {
		if f.IsVideo() {
			out = append(out, f)
		}
	}
	return out
}

// LargestVideoFile returns the biggest video file in the set.
func LargestVideoFile(files []File) (File, bool) {
	video := VideoFiles(files)
	if len(video) == 0 {
		return File{}, false
	}
	largest := video[0]
	for _, f := range video[1:] {
		if f.Size > largest.Size {
			largest = f
		}
	}
	return largest, true
}

// episodeResolver resolves the season/episode for one candidate file,
// consulting a richer parser (titleparser.Parse on filename, then on the
// container title) before falling back to the regex cascade. Callers
// supply it so fileselect stays independent of titleparser's package.
type episodeResolver func(filename string) (seasons []int, episodes []int)

// Select implements the full selection algorithm (spec.md §4.4.1): exact
// name, then season/episode match across video files, then largest video
// file, raising a typed exception at each terminal failure the way
// select_file_index_from_torrent does.
func Select(files []File, filename string, season, episode int, resolve episodeResolver) (Selection, error) {
	if filename != "" {
		if f, ok := ByExactName(files, filename); ok {
			return Selection{File: f, Season: season, Episode: episode}, nil
		}
	}

	video := VideoFiles(files)
	if len(video) == 0 {
		return Selection{}, providerexception.New(providerexception.ClipNoMatchingFile,
			"no valid video files found in container")
	}

	if season > 0 && episode > 0 {
		for _, f := range video {
			var seasons, episodes []int
			if resolve != nil {
				seasons, episodes = resolve(f.Name)
			}
			if containsSeasonEpisode(seasons, episodes, season, episode) {
				return Selection{File: f, Season: season, Episode: episode}, nil
			}
			if s, e, ok := FallbackParseSeasonEpisode(f.Name, season); ok && s == season && e == episode {
				return Selection{File: f, Season: season, Episode: episode}, nil
			}
		}
		if len(video) == 1 {
			return Selection{File: video[0], Season: season, Episode: episode}, nil
		}
		return Selection{}, providerexception.New(providerexception.ClipEpisodeNotFound,
			"found video files but couldn't match season/episode")
	}

	if f, ok := LargestVideoFile(video); ok {
		return Selection{File: f}, nil
	}

	return Selection{}, providerexception.New(providerexception.ClipNoMatchingFile,
		"no valid video file found in container")
}

func containsSeasonEpisode(seasons, episodes []int, season, episode int) bool {
	if len(seasons) == 0 {
		return false
	}
	seasonOK := false
	for _, s := range seasons {
		if s == season {
			seasonOK = true
			break
		}
	}
	if !seasonOK {
		return false
	}
	if len(episodes) == 0 {
		return true
	}
	for _, e := range episodes {
		if e == episode {
			return true
		}
	}
	return false
}
