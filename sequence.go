package seqplay

import (
	"fmt"
	"strings"
)

// SequenceSpec describes a folder of numbered frame files.
type SequenceSpec struct {
	Folder    string `yaml:"folder"`
	Prefix    string `yaml:"prefix"`
	Extension string `yaml:"extension"`
	Start     int    `yaml:"start"`
	End       int    `yaml:"end"`
	Padding   int    `yaml:"padding"`
}

// NewSequenceSpec returns a spec for folder/001.jpg ... folder/<end>.jpg.
func NewSequenceSpec(folder string, end int) SequenceSpec {
	return SequenceSpec{
		Folder:    folder,
		Extension: ".jpg",
		Start:     1,
		End:       end,
		Padding:   3,
	}
}

// GenerateFrameURLs expands spec into the ordered list of frame URLs,
// e.g. "/images/hero/frame_001.jpg" ... "/images/hero/frame_120.jpg".
func GenerateFrameURLs(spec SequenceSpec) []string {
	ext := spec.Extension
	if ext == "" {
		ext = ".jpg"
	}
	folder := strings.TrimSuffix(spec.Folder, "/")

	urls := make([]string, 0)
	for i := spec.Start; i <= spec.End; i++ {
		urls = append(urls, fmt.Sprintf("%s/%s%0*d%s", folder, spec.Prefix, spec.Padding, i, ext))
	}
	return urls
}

// Metadata summarises a list of frame URLs.
type Metadata struct {
	FrameCount    int
	EstimatedSize int64
	FirstFrame    string
	LastFrame     string
}

// SequenceMetadata returns the Metadata of urls.
func SequenceMetadata(urls []string) Metadata {
	if len(urls) == 0 {
		return Metadata{}
	}
	return Metadata{
		FrameCount:    len(urls),
		EstimatedSize: int64(len(urls)) * estimatedFrameSize,
		FirstFrame:    urls[0],
		LastFrame:     urls[len(urls)-1],
	}
}
