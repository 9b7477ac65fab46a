package remote

import (
	"strings"

	"tubedeck/types"
)

// infoResponse is the body returned by GET /info
type infoResponse struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Thumbnail *string      `json:"thumbnail"`
	Duration  *float64     `json:"duration"`
	Uploader  *string      `json:"uploader"`
	Formats   []wireFormat `json:"formats"`
}

type wireFormat struct {
	FormatID   string   `json:"format_id"`
	Ext        *string  `json:"ext"`
	Resolution *string  `json:"resolution"`
	Filesize   *float64 `json:"filesize"`
	VCodec     *string  `json:"vcodec"`
	ACodec     *string  `json:"acodec"`
}

type startRequest struct {
	URL      string `json:"url"`
	FormatID string `json:"format_id"`
}

type startResponse struct {
	JobID string `json:"job_id"`
}

// progressResponse is the body returned by GET /progress
type progressResponse struct {
	Status          string   `json:"status"`
	Progress        float64  `json:"progress"`
	DownloadedBytes *float64 `json:"downloaded_bytes"`
	TotalBytes      *float64 `json:"total_bytes"`
	Speed           *float64 `json:"speed"`
	ETA             *float64 `json:"eta"`
	Filename        *string  `json:"filename"`
	Error           *string  `json:"error"`
	Title           *string  `json:"title"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

const codecNone = "none"

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r infoResponse) toVideoInfo() types.VideoInfo {
	info := types.VideoInfo{
		ID:              r.ID,
		Title:           r.Title,
		Uploader:        deref(r.Uploader),
		DurationSeconds: r.Duration,
		ThumbnailRef:    deref(r.Thumbnail),
		Variants:        make([]types.Variant, 0, len(r.Formats)),
	}
	for _, f := range r.Formats {
		if f.FormatID == "" {
			continue
		}
		v := types.Variant{
			ID:              f.FormatID,
			Container:       deref(f.Ext),
			ResolutionLabel: deref(f.Resolution),
			// a missing codec field is not the "none" sentinel
			HasVideo: !strings.EqualFold(deref(f.VCodec), codecNone),
			HasAudio: !strings.EqualFold(deref(f.ACodec), codecNone),
		}
		if f.Filesize != nil && *f.Filesize > 0 {
			size := int64(*f.Filesize)
			v.SizeBytes = &size
		}
		info.Variants = append(info.Variants, v)
	}
	return info
}

func (r progressResponse) toJobUpdate() types.JobUpdate {
	switch types.JobStatus(r.Status) {
	case types.JobStatusQueued:
		return types.Queued{}
	case types.JobStatusFinished:
		return types.Finished{Title: deref(r.Title), FileName: deref(r.Filename)}
	case types.JobStatusError:
		msg := deref(r.Error)
		if msg == "" {
			msg = "download failed"
		}
		return types.Failed{Message: msg}
	}

	p := types.DownloadProgress{Fraction: r.Progress, SpeedBytesPerSec: r.Speed}
	if r.ETA != nil {
		eta := int64(*r.ETA)
		p.ETASeconds = &eta
	}
	if r.DownloadedBytes != nil {
		p.DownloadedBytes = int64(*r.DownloadedBytes)
	}
	if r.TotalBytes != nil && *r.TotalBytes > 0 {
		total := int64(*r.TotalBytes)
		p.TotalBytes = &total
	}
	return types.Downloading{DownloadProgress: p}
}
