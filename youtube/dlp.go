package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os/exec"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"

	"jukebox/audio"
	"jukebox/platform"
)

type dlpFormat struct {
	FormatID    string            `json:"format_id"`
	URL         string            `json:"url"`
	Ext         string            `json:"ext"`
	ACodec      string            `json:"acodec"`
	VCodec      string            `json:"vcodec"`
	ABR         float64           `json:"abr"`
	TBR         float64           `json:"tbr"`
	FileSize    int64             `json:"filesize"`
	FormatNote  string            `json:"format_note"`
	HTTPHeaders map[string]string `json:"http_headers"`
}

type dlpInfo struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Formats []dlpFormat `json:"formats"`
}

type dlpHandle struct {
	url     string
	headers map[string]string
}

// DlpOrigin resolves renditions by shelling out to yt-dlp, for hosts where the
// native player client gets throttled.
type DlpOrigin struct {
	httpClient *http.Client
	run        func(ctx context.Context, args ...string) ([]byte, error)
}

func NewDlpOrigin(httpClient *http.Client) *DlpOrigin {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &DlpOrigin{
		httpClient: httpClient,
		run: func(ctx context.Context, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, "yt-dlp", args...).Output()
		},
	}
}

func (d *DlpOrigin) Renditions(ctx context.Context, videoID string) ([]audio.Rendition, error) {
	logger := log.WithFields(log.Fields{"module": "youtube", "video_id": videoID, "function": "DlpOrigin.Renditions"})

	span := sentry.StartSpan(ctx, "youtube.dump_formats")
	span.Description = "List formats via yt-dlp"
	span.SetTag("video_id", videoID)
	defer span.Finish()

	spec, _ := platform.Lookup(platform.YouTube)
	ytUrl := spec.WatchURL(videoID)
	output, err := d.run(span.Context(),
		"-J",
		"--no-playlist",
		"--socket-timeout", "10",
		"--extractor-retries", "1",
		"--no-warnings",
		ytUrl)
	if err != nil {
		logger.WithFields(log.Fields{"error": err}).Error("yt-dlp command failed")
		span.Status = sentry.SpanStatusInternalError
		return nil, fmt.Errorf("yt-dlp error: %w", err)
	}

	renditions, err := parseDlpFormats(output)
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		return nil, err
	}

	span.Status = sentry.SpanStatusOK
	return renditions, nil
}

func (d *DlpOrigin) Open(ctx context.Context, rendition audio.Rendition) (io.ReadCloser, int64, error) {
	handle, ok := rendition.Handle.(dlpHandle)
	if !ok {
		return nil, 0, errors.New("rendition was not produced by this origin")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, handle.url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range handle.headers {
		req.Header.Set(k, v)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("audio origin returned status %d", resp.StatusCode)
	}
	return resp.Body, resp.ContentLength, nil
}

func parseDlpFormats(output []byte) ([]audio.Rendition, error) {
	var info dlpInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return nil, fmt.Errorf("failed to decode yt-dlp output: %w", err)
	}

	renditions := make([]audio.Rendition, 0, len(info.Formats))
	for _, f := range info.Formats {
		if f.URL == "" {
			continue
		}
		audioOnly := f.VCodec == "none" && f.ACodec != "" && f.ACodec != "none"
		bitrate := f.ABR
		if bitrate == 0 {
			bitrate = f.TBR
		}
		renditions = append(renditions, audio.Rendition{
			MimeType:      dlpMimeType(f, audioOnly),
			Bitrate:       int(math.Round(bitrate * 1000)),
			AudioOnly:     audioOnly,
			Quality:       f.FormatNote,
			ContentLength: f.FileSize,
			Handle:        dlpHandle{url: f.URL, headers: f.HTTPHeaders},
		})
	}
	return renditions, nil
}

func dlpMimeType(f dlpFormat, audioOnly bool) string {
	kind := "video"
	if audioOnly {
		kind = "audio"
	}
	switch f.Ext {
	case "m4a", "mp4":
		return kind + "/mp4"
	case "webm":
		return kind + "/webm"
	case "mp3":
		return "audio/mpeg"
	case "":
		return ""
	default:
		return kind + "/" + f.Ext
	}
}
