// Package titleparser extracts structured metadata from a scraped
// torrent/NZB title string. It keeps the teacher's regex-chain design: each
// matcher looks for its pattern, records the earliest match index, and the
// title is truncated at the leftmost match found by any matcher — whatever
// comes after the first recognised tag is noise, not part of the title.
package titleparser

import (
	"regexp"
	"strconv"
	"strings"
)

// MetaInfo is the structured result of Parse, covering every attribute
// spec.md §4.5 step 2 requires a scraper's shared validation to extract.
type MetaInfo struct {
	Title      string
	Year       int
	Resolution int
	Quality    string
	Codec      string
	BitDepth   int
	Audio      []string
	Channels   string
	HDR        []string
	Languages  []string
	Container  string
	ThreeD     bool

	Seasons  []int
	Episodes []int

	IsProper     bool
	IsRepack     bool
	IsExtended   bool
	IsDubbed     bool
	IsSubbed     bool
	IsComplete   bool
	IsRemastered bool
	IsUpscaled   bool
}

type matcher func(string, *MetaInfo) int

var parsers = []matcher{
	parseYear(`(?:\b((?:19[0-9]|20[0-9])[0-9])\b)|(?:\(((?:19[0-9]|20[0-9])[0-9])\))`),
	parseResolution(`(?i)([0-9]{3,4})[pi]`),
	matchAndSetResolution(`(?i)(4k)`, 2160),
	parseBitDepth(`(?i)\b(8|10|12)[\s\.-]?bit\b`),
	matchAndSetQuality(`(?i)\b(?:HD-?)?CAM(?:rip)?\b`, "cam"),
	matchAndSetQuality(`(?i)\b(?:HD-?)?T(?:ELE)?S(?:YNC)?\b`, "telesync"),
	matchAndSetQuality(`(?i)\bTS-?Rip\b`, "telesync"),
	parseQuality(`(?i)\bHD-?Rip\b`),
	parseQuality(`(?i)\bBRRip\b`),
	parseQuality(`(?i)\bBDRip\b`),
	parseQuality(`(?i)\bDVDRip\b`),
	matchAndSetQuality(`(?i)\bDVD(?:R[0-9])?\b`, "dvd"),
	parseQuality(`(?i)\bDVDscr\b`),
	parseQuality(`(?i)\b(?:HD-?)?TVRip\b`),
	parseQuality(`(?i)\bPPVRip\b`),
	parseQuality(`(?i)\bR5\b`),
	matchAndSetQuality(`(?i)\bBlu-?ray(?:[\s\.]|.+\b)Remux\b`, "brremux"),
	matchAndSetQuality(`(?i)\bBlu-?ray\b`, "bluray"),
	parseQuality(`(?i)\bWEB-?DL\b`),
	parseQuality(`(?i)\bWEB-?Rip\b`),
	parseQuality(`(?i)\b(?:DL|WEB|BD|BR)REMUX\b`),
	parseQuality(`(?i)HDTV`),
	parseCodec(`(?i)mpeg2|divx|xvid|[xh][-. ]?26[45]|avc|hevc|av1`),
	appendHDR(`(?i)\bDolby[\s\.]?Vision\b|\bDV\b`, "dovi"),
	appendHDR(`(?i)\bHDR10\+?\b`, "hdr10"),
	appendHDR(`(?i)\bHLG\b`, "hlg"),
	appendAudio(`(?i)\bAtmos\b`),
	appendAudio(`(?i)\bTrueHD\b`),
	appendAudio(`(?i)\bDTS(?:-HD)?(?:\.?MA)?\b`),
	appendAudio(`(?i)\bFLAC\b`),
	matchAndSetChannels(`(?i)\b7[\.\s]1\b`, "7.1"),
	matchAndSetChannels(`(?i)\b5[\.\s]1\b`, "5.1"),
	matchAndSetChannels(`(?i)\b2[\.\s]0\b`, "2.0"),
	appendAudio(`(?i)AC-?3(?:\.5\.1)?`),
	appendAudio(`(?i)DD[P]?5[. ]?1`),
	appendAudio(`(?i)AAC(?:[. ]?2[. ]0)?`),
	appendAudio(`(?i)\bMP3\b`),
	parseContainer(`(?i)\b(MKV|AVI|MP4)\b`),
	parse3D(`(?i)\b(3D)\b`),
	setFlag(`(?i)\bPROPER\b`, func(m *MetaInfo) *bool { return &m.IsProper }),
	setFlag(`(?i)\bREPACK\b`, func(m *MetaInfo) *bool { return &m.IsRepack }),
	setFlag(`(?i)\bEXTENDED\b`, func(m *MetaInfo) *bool { return &m.IsExtended }),
	setFlag(`(?i)\b(?:DUBBED|DUAL[- ]?AUDIO|MULTI)\b`, func(m *MetaInfo) *bool { return &m.IsDubbed }),
	setFlag(`(?i)\b(?:SUBBED|SUBS)\b`, func(m *MetaInfo) *bool { return &m.IsSubbed }),
	setFlag(`(?i)\bCOMPLETE\b`, func(m *MetaInfo) *bool { return &m.IsComplete }),
	setFlag(`(?i)\bREMASTERED\b`, func(m *MetaInfo) *bool { return &m.IsRemastered }),
	setFlag(`(?i)\bUPSCALED?\b`, func(m *MetaInfo) *bool { return &m.IsUpscaled }),
	parseSeasonEpisodeRange(`(?i)S(\d{1,2})E(\d{1,2})-?E?(\d{1,2})?`),
	parseMultiSeason(`(?i)S(\d{2})\s*(?:to|-)?\s*S(\d{2})`),
	parseMultiSeason(`(?i)\bseason\s+(\d{1,2})[\s-]+(\d{1,2})\b`),
	parseSingleSeason(`(?i)\bs(\d{2})\b`),
	parseSingleSeason(`(?i)\bseason[- ]?(\d{1,2})\b`),
	appendLanguage(`(?i)\bFR(?:ENCH)?\b`, "french"),
	appendLanguage(`(?i)\bVOSTFR\b`, "french"),
	appendLanguage(`(?i)\bGER(?:MAN)?\b`, "german"),
	appendLanguage(`(?i)\bMULTI\b`, "multi"),
	appendLanguage(`(?i)\bHINDI\b`, "hindi"),
	appendLanguage(`(?i)\bSPANISH\b`, "spanish"),
}

// Parse extracts MetaInfo from a raw title, truncating Title at the
// leftmost tag recognised by any matcher.
func Parse(title string) *MetaInfo {
	m := &MetaInfo{}
	index := len(title)

	for _, p := range parsers {
		if next := p(title, m); next >= 0 && next < index {
			index = next
		}
	}

	m.Title = strings.TrimSpace(strings.Trim(title[:index], ".-_ "))
	return m
}

func findValue(value *string, title string, re *regexp.Regexp) int {
	if *value != "" {
		return -1
	}
	matches := re.FindAllStringIndex(title, -1)
	if len(matches) == 0 {
		return -1
	}
	loc := matches[len(matches)-1]
	*value = strings.ToLower(title[loc[0]:loc[1]])
	return loc[0]
}

func findSubValue(value *string, title string, re *regexp.Regexp) int {
	matches := re.FindAllStringSubmatchIndex(title, -1)
	if len(matches) == 0 {
		return -1
	}
	loc := matches[len(matches)-1]
	if len(loc) < 4 || loc[2] < 0 {
		return -1
	}
	*value = strings.ToLower(title[loc[2]:loc[3]])
	return loc[0]
}

func findAndSet(value *string, title string, re *regexp.Regexp, target string) int {
	if *value != "" {
		return -1
	}
	matches := re.FindAllStringIndex(title, -1)
	if len(matches) == 0 {
		return -1
	}
	*value = target
	return matches[len(matches)-1][0]
}

func appendUnique(values *[]string, v string) {
	for _, existing := range *values {
		if existing == v {
			return
		}
	}
	*values = append(*values, v)
}

func parseYear(pattern string) matcher {
	re := regexp.MustCompile(pattern)
	return func(title string, m *MetaInfo) int {
		if m.Year > 0 {
			return -1
		}
		var year string
		idx := findValue(&year, title, re)
		if idx != -1 {
			year = strings.Trim(year, "()")
			m.Year, _ = strconv.Atoi(year)
		}
		return idx
	}
}

func parseResolution(pattern string) matcher {
	re := regexp.MustCompile(pattern)
	return func(title string, m *MetaInfo) int {
		if m.Resolution > 0 {
			return -1
		}
		var res string
		idx := findSubValue(&res, title, re)
		if idx != -1 {
			m.Resolution, _ = strconv.Atoi(res)
		}
		return idx
	}
}

func matchAndSetResolution(pattern string, value int) matcher {
	re := regexp.MustCompile(pattern)
	return func(title string, m *MetaInfo) int {
		if m.Resolution > 0 {
			return -1
		}
		var tmp string
		idx := findValue(&tmp, title, re)
		if idx != -1 {
			m.Resolution = value
		}
		return idx
	}
}

func parseBitDepth(pattern string) matcher {
	re := regexp.MustCompile(pattern)
	return func(title string, m *MetaInfo) int {
		if m.BitDepth > 0 {
			return -1
		}
		var depth string
		idx := findSubValue(&depth, title, re)
		if idx != -1 {
			m.BitDepth, _ = strconv.Atoi(depth)
		}
		return idx
	}
}

func parseQuality(pattern string) matcher {
	re := regexp.MustCompile(pattern)
	return func(title string, m *MetaInfo) int { return findValue(&m.Quality, title, re) }
}

func matchAndSetQuality(pattern, value string) matcher {
	re := regexp.MustCompile(pattern)
	return func(title string, m *MetaInfo) int { return findAndSet(&m.Quality, title, re, value) }
}

func parseCodec(pattern string) matcher {
	re := regexp.MustCompile(pattern)
	return func(title string, m *MetaInfo) int {
		idx := findValue(&m.Codec, title, re)
		if idx != -1 {
			m.Codec = strings.NewReplacer(".", "", "-", "", " ", "").Replace(m.Codec)
		}
		return idx
	}
}

func appendAudio(pattern string) matcher {
	re := regexp.MustCompile(pattern)
	return func(title string, m *MetaInfo) int {
		matches := re.FindAllStringIndex(title, -1)
		if len(matches) == 0 {
			return -1
		}
		loc := matches[len(matches)-1]
		appendUnique(&m.Audio, strings.ToLower(title[loc[0]:loc[1]]))
		return loc[0]
	}
}

func appendHDR(pattern, tag string) matcher {
	re := regexp.MustCompile(pattern)
	return func(title string, m *MetaInfo) int {
		matches := re.FindAllStringIndex(title, -1)
		if len(matches) == 0 {
			return -1
		}
		appendUnique(&m.HDR, tag)
		return matches[len(matches)-1][0]
	}
}

func appendLanguage(pattern, tag string) matcher {
	re := regexp.MustCompile(pattern)
	return func(title string, m *MetaInfo) int {
		matches := re.FindAllStringIndex(title, -1)
		if len(matches) == 0 {
			return -1
		}
		appendUnique(&m.Languages, tag)
		return matches[len(matches)-1][0]
	}
}

func matchAndSetChannels(pattern, value string) matcher {
	re := regexp.MustCompile(pattern)
	return func(title string, m *MetaInfo) int { return findAndSet(&m.Channels, title, re, value) }
}

func parseContainer(pattern string) matcher {
	re := regexp.MustCompile(pattern)
	return func(title string, m *MetaInfo) int { return findValue(&m.Container, title, re) }
}

func parse3D(pattern string) matcher {
	re := regexp.MustCompile(pattern)
	return func(title string, m *MetaInfo) int {
		if m.ThreeD {
			return -1
		}
		var tmp string
		idx := findValue(&tmp, title, re)
		m.ThreeD = idx != -1
		return idx
	}
}

func setFlag(pattern string, field func(*MetaInfo) *bool) matcher {
	re := regexp.MustCompile(pattern)
	return func(title string, m *MetaInfo) int {
		flag := field(m)
		if *flag {
			return -1
		}
		var tmp string
		idx := findValue(&tmp, title, re)
		*flag = idx != -1
		return idx
	}
}

func seasonRange(from, to int) []int {
	if to < from {
		to = from
	}
	out := make([]int, 0, to-from+1)
	for s := from; s <= to; s++ {
		out = append(out, s)
	}
	return out
}

func parseSeasonEpisodeRange(pattern string) matcher {
	re := regexp.MustCompile(pattern)
	return func(title string, m *MetaInfo) int {
		if len(m.Seasons) > 0 {
			return -1
		}
		matches := re.FindAllStringSubmatchIndex(title, -1)
		if len(matches) == 0 {
			return -1
		}
		loc := matches[len(matches)-1]
		season, _ := strconv.Atoi(title[loc[2]:loc[3]])
		epFrom, _ := strconv.Atoi(title[loc[4]:loc[5]])
		epTo := epFrom
		if len(loc) > 7 && loc[6] >= 0 {
			epTo, _ = strconv.Atoi(title[loc[6]:loc[7]])
		}
		m.Seasons = []int{season}
		m.Episodes = seasonRange(epFrom, epTo)
		return loc[0]
	}
}

func parseMultiSeason(pattern string) matcher {
	re := regexp.MustCompile(pattern)
	return func(title string, m *MetaInfo) int {
		if len(m.Seasons) > 0 {
			return -1
		}
		matches := re.FindAllStringSubmatchIndex(title, -1)
		if len(matches) == 0 {
			return -1
		}
		loc := matches[len(matches)-1]
		from, _ := strconv.Atoi(title[loc[2]:loc[3]])
		to, _ := strconv.Atoi(title[loc[4]:loc[5]])
		m.Seasons = seasonRange(from, to)
		return loc[0]
	}
}

func parseSingleSeason(pattern string) matcher {
	re := regexp.MustCompile(pattern)
	return func(title string, m *MetaInfo) int {
		if len(m.Seasons) > 0 {
			return -1
		}
		matches := re.FindAllStringSubmatchIndex(title, -1)
		if len(matches) == 0 {
			return -1
		}
		loc := matches[len(matches)-1]
		season, _ := strconv.Atoi(title[loc[2]:loc[3]])
		m.Seasons = []int{season}
		return loc[0]
	}
}

// ContainsSeasonEpisode reports whether the parsed set includes the given
// season/episode — season packs (no parsed episode list) are treated as
// containing any episode of a contained season (spec.md §4.5 step 5).
func (m *MetaInfo) ContainsSeasonEpisode(season, episode int) bool {
	seasonOK := false
	for _, s := range m.Seasons {
		if s == season {
			seasonOK = true
			break
		}
	}
	if !seasonOK {
		return false
	}
	if len(m.Episodes) == 0 {
		return true // season pack
	}
	for _, e := range m.Episodes {
		if e == episode {
			return true
		}
	}
	return false
}
