package types

import "fmt"

// Variant is one selectable encoding of a video as reported by the collaborator service
type Variant struct {
	ID              string `json:"variantId"`
	Container       string `json:"container"`
	ResolutionLabel string `json:"resolution,omitempty"`
	SizeBytes       *int64 `json:"sizeBytes,omitempty"`
	HasVideo        bool   `json:"hasVideo"`
	HasAudio        bool   `json:"hasAudio"`
}

// Label renders the variant the way the selection list shows it
func (v Variant) Label() string {
	resolution := v.ResolutionLabel
	if resolution == "" {
		resolution = "N/A"
	}
	label := fmt.Sprintf("%s • %s", resolution, v.Container)
	if v.SizeBytes != nil && *v.SizeBytes > 0 {
		label += fmt.Sprintf(" • %.1f MB", float64(*v.SizeBytes)/(1024*1024))
	}
	return label
}

// VideoInfo is the resolved metadata for a source URL
type VideoInfo struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Uploader        string    `json:"uploader,omitempty"`
	DurationSeconds *float64  `json:"durationSeconds,omitempty"`
	ThumbnailRef    string    `json:"thumbnail,omitempty"`
	Variants        []Variant `json:"variants"`
}

// Item represents one user-queued video with its selection and job state
type Item struct {
	VideoInfo
	SourceURL         string    `json:"sourceUrl"`
	SelectedVariantID string    `json:"selectedVariantId,omitempty"`
	Job               *JobState `json:"job,omitempty"`
}

// Clone returns a deep copy safe to hand out of the catalog
func (it Item) Clone() Item {
	out := it
	if it.Variants != nil {
		out.Variants = make([]Variant, len(it.Variants))
		copy(out.Variants, it.Variants)
	}
	if it.DurationSeconds != nil {
		d := *it.DurationSeconds
		out.DurationSeconds = &d
	}
	if it.Job != nil {
		job := it.Job.Clone()
		out.Job = &job
	}
	return out
}

// HasVariant reports whether id names one of the item's variants
func (it Item) HasVariant(id string) bool {
	for _, v := range it.Variants {
		if v.ID == id {
			return true
		}
	}
	return false
}

// DurationString formats the duration as "Xm Ys", or "N/A" when unknown
func (it Item) DurationString() string {
	if it.DurationSeconds == nil || *it.DurationSeconds <= 0 {
		return "N/A"
	}
	total := int(*it.DurationSeconds)
	return fmt.Sprintf("%dm %ds", total/60, total%60)
}
