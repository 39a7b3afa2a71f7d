// Package providerexception defines the finite taxonomy of provider-side
// playback failures. Every one of them maps to a short, pre-recorded clip
// served from the static asset path so the player always sees a valid
// redirect instead of an error panel.
package providerexception

import "fmt"

// Clip file names, served from the static error-clip asset path.
const (
	ClipInvalidToken          = "invalid_token.mp4"
	ClipNeedPremium           = "need_premium.mp4"
	ClipTooManyRequests       = "too_many_requests.mp4"
	ClipTransferError         = "transfer_error.mp4"
	ClipTorrentNotDownloaded  = "torrent_not_downloaded.mp4"
	ClipNoVideoFileFound      = "no_video_file_found.mp4"
	ClipNoMatchingFile        = "no_matching_file.mp4"
	ClipEpisodeNotFound       = "episode_not_found.mp4"
	ClipAPIError              = "api_error.mp4"
	ClipNotEnoughSpace        = "not_enough_space.mp4"
	ClipDailyDownloadLimit    = "daily_download_limit.mp4"
	ClipWebdavError           = "webdav_error.mp4"
	ClipExceedRemoteTraffic   = "exceed_remote_traffic_limit.mp4"
	ClipInvalidCredentials    = "invalid_credentials.mp4"
	ClipDebridServiceDown     = "debrid_service_down_error.mp4"
	ClipAllDebridAPIBlocked   = "alldebrid_api_blocked.mp4"
	ClipTorrentLimit          = "torrent_limit.mp4"
)

// Exception is a well-defined provider-side failure tied to a clip. It is
// the only error type the Playback Coordinator translates into a redirect
// body; every other error becomes ClipAPIError.
type Exception struct {
	VideoFileName string
	Message       string
}

func New(videoFileName, message string) *Exception {
	return &Exception{VideoFileName: videoFileName, Message: message}
}

func (e *Exception) Error() string {
	return fmt.Sprintf("%s (clip=%s)", e.Message, e.VideoFileName)
}

// FromHTTPStatus maps a provider HTTP response status to the exception
// taxonomy used across every debrid/Usenet client's error handling.
func FromHTTPStatus(status int, body string) *Exception {
	switch status {
	case 502, 503, 504:
		return New(ClipDebridServiceDown, "debrid service is down")
	case 401:
		return New(ClipInvalidToken, "invalid token")
	case 429:
		return New(ClipTooManyRequests, "too many requests")
	default:
		return New(ClipAPIError, "api error: "+body)
	}
}
