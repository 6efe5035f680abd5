package seqplay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFrameURLs(t *testing.T) {
	var tests = []struct {
		name string
		spec SequenceSpec
		want []string
	}{
		{
			name: "prefixed",
			spec: SequenceSpec{Folder: "/images/hero/", Prefix: "frame_", Extension: ".jpg", Start: 1, End: 3, Padding: 3},
			want: []string{"/images/hero/frame_001.jpg", "/images/hero/frame_002.jpg", "/images/hero/frame_003.jpg"},
		},
		{
			name: "defaults",
			spec: NewSequenceSpec("seq", 2),
			want: []string{"seq/001.jpg", "seq/002.jpg"},
		},
		{
			name: "zero based without padding",
			spec: SequenceSpec{Folder: "f", Extension: ".webp", Start: 0, End: 10},
			want: []string{"f/0.webp", "f/1.webp", "f/2.webp", "f/3.webp", "f/4.webp", "f/5.webp",
				"f/6.webp", "f/7.webp", "f/8.webp", "f/9.webp", "f/10.webp"},
		},
		{
			name: "empty range",
			spec: SequenceSpec{Folder: "f", Start: 5, End: 4},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, GenerateFrameURLs(tt.spec)); diff != "" {
				t.Errorf("GenerateFrameURLs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSequenceMetadata(t *testing.T) {
	assert.Equal(t, Metadata{}, SequenceMetadata(nil))

	urls := GenerateFrameURLs(SequenceSpec{Folder: "/images/hero", Prefix: "frame_", Extension: ".jpg", Start: 1, End: 120, Padding: 3})
	want := Metadata{
		FrameCount:    120,
		EstimatedSize: 120 * 200 * 1024,
		FirstFrame:    "/images/hero/frame_001.jpg",
		LastFrame:     "/images/hero/frame_120.jpg",
	}
	assert.Equal(t, want, SequenceMetadata(urls))
}

func TestDefaultFetcherReadsFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "001.png")
	require.NoError(t, os.WriteFile(path, []byte("frame"), 0o644))

	fetcher := &DefaultFetcher{}
	for _, rawURL := range []string{path, "file://" + path} {
		rc, err := fetcher.Fetch(context.Background(), rawURL)
		require.NoError(t, err, rawURL)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		assert.Equal(t, "frame", string(data))
	}

	_, err := fetcher.Fetch(context.Background(), filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestDefaultFetcherReadsHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/frame_001.png" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "frame")
	}))
	defer server.Close()

	client := server.Client()
	defer client.CloseIdleConnections()
	fetcher := &DefaultFetcher{Client: client}

	rc, err := fetcher.Fetch(context.Background(), server.URL+"/frame_001.png")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "frame", string(data))

	_, err = fetcher.Fetch(context.Background(), server.URL+"/frame_002.png")
	assert.ErrorContains(t, err, "404")
}

func TestLoaderDecodesFilesFromDisk(t *testing.T) {
	dir := t.TempDir()
	spec := SequenceSpec{Folder: dir, Prefix: "frame_", Extension: ".png", Start: 1, End: 3, Padding: 3}
	list := GenerateFrameURLs(spec)
	for i, path := range list {
		require.NoError(t, os.WriteFile(path, encodePNG(t, solidImage(2, 2, testColor(i))), 0o644))
	}

	recorder := &loadRecorder{}
	handle, err := NewAssetLoader().Start(list, recorder.callbacks())
	require.NoError(t, err)
	<-handle.Done()

	_, _, errs, frames := recorder.snapshot()
	assert.Empty(t, errs)
	require.Len(t, frames, 3)
	assert.Equal(t, 2, frames[2].Image.Bounds().Dx())
}
