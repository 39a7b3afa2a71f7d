package fileselect

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByExactName(t *testing.T) {
	files := []File{
		{Index: 0, Name: "show/S01E01.mkv", Size: 100},
		{Index: 1, Name: "show/S01E02.mkv", Size: 200},
	}
	f, ok := ByExactName(files, "S01E02.mkv")
	require.True(t, ok)
	require.Equal(t, 1, f.Index)
}

func TestLargestVideoFileIgnoresSamples(t *testing.T) {
	files := []File{
		{Index: 0, Name: "sample.mkv", Size: 10},
		{Index: 1, Name: "movie.mkv", Size: 9000},
		{Index: 2, Name: "movie.nfo", Size: 1},
	}
	f, ok := LargestVideoFile(files)
	require.True(t, ok)
	require.Equal(t, 1, f.Index)
}

func TestFallbackParseSeasonEpisodeStandard(t *testing.T) {
	season, episode, ok := FallbackParseSeasonEpisode("Show.Name.S02E07.1080p.mkv", 1)
	require.True(t, ok)
	require.Equal(t, 2, season)
	require.Equal(t, 7, episode)
}

func TestFallbackParseSeasonEpisodeSeparatorX(t *testing.T) {
	season, episode, ok := FallbackParseSeasonEpisode("Show 03x11 HDTV.mkv", 1)
	require.True(t, ok)
	require.Equal(t, 3, season)
	require.Equal(t, 11, episode)
}

func TestFallbackParseSeasonEpisodeRejectsHashLikeSimpleEpisode(t *testing.T) {
	_, _, ok := FallbackParseSeasonEpisode("Anime.Title.[A1B2C3D4].mkv", 1)
	require.False(t, ok)
}

func TestSelectFallsBackToLargestWhenNoSeasonRequested(t *testing.T) {
	files := []File{
		{Index: 0, Name: "a.mkv", Size: 10},
		{Index: 1, Name: "b.mkv", Size: 999},
	}
	sel, err := Select(files, "", 0, 0, nil)
	require.NoError(t, err)
	require.Equal(t, 1, sel.File.Index)
}

func TestSelectReturnsEpisodeNotFoundException(t *testing.T) {
	files := []File{
		{Index: 0, Name: "Show.S01E01.mkv", Size: 10},
		{Index: 1, Name: "Show.S01E02.mkv", Size: 10},
	}
	_, err := Select(files, "", 1, 9, nil)
	require.Error(t, err)
}

func TestSelectReturnsNoMatchingFileWhenNoVideoFiles(t *testing.T) {
	files := []File{
		{Index: 0, Name: "readme.txt", Size: 10},
	}
	_, err := Select(files, "", 0, 0, nil)
	require.Error(t, err)
}
