package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	kkdai "github.com/kkdai/youtube/v2"
	log "github.com/sirupsen/logrus"

	"jukebox/audio"
)

type formatHandle struct {
	video  *kkdai.Video
	format kkdai.Format
}

// Origin lists and opens renditions through the player API, without any
// external binaries.
type Origin struct {
	client *kkdai.Client
}

func NewOrigin(httpClient *http.Client) *Origin {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Origin{client: &kkdai.Client{HTTPClient: httpClient}}
}

func (o *Origin) Renditions(ctx context.Context, videoID string) ([]audio.Rendition, error) {
	video, err := o.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to get video %s: %w", videoID, err)
	}

	log.WithFields(log.Fields{"module": "youtube", "function": "Renditions", "video_id": videoID}).
		Tracef("%d formats available", len(video.Formats))

	return renditionsFromFormats(video, video.Formats), nil
}

func (o *Origin) Open(ctx context.Context, rendition audio.Rendition) (io.ReadCloser, int64, error) {
	handle, ok := rendition.Handle.(formatHandle)
	if !ok {
		return nil, 0, errors.New("rendition was not produced by this origin")
	}
	stream, size, err := o.client.GetStreamContext(ctx, handle.video, &handle.format)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open stream: %w", err)
	}
	return stream, size, nil
}

func renditionsFromFormats(video *kkdai.Video, formats kkdai.FormatList) []audio.Rendition {
	renditions := make([]audio.Rendition, 0, len(formats))
	for _, f := range formats {
		bitrate := f.Bitrate
		if f.AverageBitrate > 0 {
			bitrate = f.AverageBitrate
		}
		renditions = append(renditions, audio.Rendition{
			MimeType:      f.MimeType,
			Bitrate:       bitrate,
			AudioOnly:     strings.HasPrefix(f.MimeType, "audio/"),
			Quality:       f.AudioQuality,
			ContentLength: f.ContentLength,
			Handle:        formatHandle{video: video, format: f},
		})
	}
	return renditions
}
