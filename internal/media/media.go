// Package media downloads rich-push attachments into temporary files. The
// caller bounds the download with its context; on expiry the notification
// is delivered without the attachment.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Kind is the broad attachment category, used to pick presentation.
type Kind string

const (
	KindImage Kind = "image"
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// Attachment is a downloaded media file ready to hand to the host.
type Attachment struct {
	Path string
	Ext  string
	Kind Kind
}

// knownExts is matched against the last characters of the URL. The last
// list entry found in the suffix wins, so ".mpeg" shadows ".mpg".
var knownExts = []string{
	".aiff", ".wav", ".mp3", ".m4a",
	".jpg", ".jpeg", ".gif", ".png",
	".mpg", ".mpeg", ".mpeg2", ".mp4", ".avi",
}

// Ext infers the file extension from the last 5 characters of the URL.
// Unknown extensions fall back to ".jpg".
func Ext(url string) string {
	suffix := url
	if len(suffix) > 5 {
		suffix = suffix[len(suffix)-5:]
	}
	match := ".jpg"
	for _, ext := range knownExts {
		if strings.Contains(suffix, ext) {
			match = ext
		}
	}
	return match
}

// KindOf maps an extension to its attachment category.
func KindOf(ext string) Kind {
	switch ext {
	case ".aiff", ".wav", ".mp3", ".m4a":
		return KindAudio
	case ".mpg", ".mpeg", ".mpeg2", ".mp4", ".avi":
		return KindVideo
	default:
		return KindImage
	}
}

// Fetcher downloads attachments into Dir (the system temp directory when
// empty).
type Fetcher struct {
	Client *http.Client
	Dir    string
	Logger zerolog.Logger
}

// Fetch downloads url into a uniquely named temp file. The file is the
// caller's to remove.
func (f *Fetcher) Fetch(ctx context.Context, url string) (Attachment, error) {
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Attachment{}, fmt.Errorf("build media request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return Attachment{}, fmt.Errorf("download media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Attachment{}, fmt.Errorf("download media: status %d", resp.StatusCode)
	}

	dir := f.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	ext := Ext(url)
	path := filepath.Join(dir, uuid.NewString()+ext)
	file, err := os.Create(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("create media file: %w", err)
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		os.Remove(path)
		return Attachment{}, fmt.Errorf("write media file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return Attachment{}, fmt.Errorf("close media file: %w", err)
	}

	f.Logger.Debug().Str("url", url).Str("path", path).Msg("attachment downloaded")
	return Attachment{Path: path, Ext: ext, Kind: KindOf(ext)}, nil
}
