package edgepurge

import (
	"fmt"
	"testing"
)

// fakeSource is an in-memory ContentSource for engine tests.
type fakeSource struct {
	items     map[int64]ContentItem
	attached  map[int64][]int64
	canonical map[int64]string
	variants  map[int64]map[string]string
	relPaths  map[int64]string
	sizes     []string
	base      string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		items:     make(map[int64]ContentItem),
		attached:  make(map[int64][]int64),
		canonical: make(map[int64]string),
		variants:  make(map[int64]map[string]string),
		relPaths:  make(map[int64]string),
		sizes:     []string{"thumbnail", "medium", "full"},
		base:      "https://example.com/uploads",
	}
}

func (f *fakeSource) Item(id int64) (ContentItem, error) {
	item, ok := f.items[id]
	if !ok {
		return ContentItem{}, fmt.Errorf("no item %d", id)
	}
	return item, nil
}

func (f *fakeSource) AttachedMedia(itemID int64) ([]int64, error) {
	return f.attached[itemID], nil
}

func (f *fakeSource) CanonicalURL(assetID int64) (string, error) {
	return f.canonical[assetID], nil
}

func (f *fakeSource) VariantURL(assetID int64, size string) (string, error) {
	return f.variants[assetID][size], nil
}

func (f *fakeSource) SizeNames() []string { return f.sizes }

func (f *fakeSource) RelativeFilePath(assetID int64) (string, error) {
	return f.relPaths[assetID], nil
}

func (f *fakeSource) BaseUploadURL() string { return f.base }

// addAsset registers an asset whose "full" variant duplicates the canonical
// URL, mirroring how size registries usually include the original.
func (f *fakeSource) addAsset(id int64, name string) {
	f.canonical[id] = "https://example.com/uploads/" + name + ".jpg"
	f.variants[id] = map[string]string{
		"thumbnail": "https://example.com/uploads/" + name + "-150x100.jpg",
		"medium":    "https://example.com/uploads/" + name + "-300x200.jpg",
		"full":      f.canonical[id],
	}
}

func TestMediaURLsCanonicalPlusDistinctVariants(t *testing.T) {
	src := newFakeSource()
	src.addAsset(7, "photo")
	r := NewResolver(src)

	urls, err := r.MediaURLs(7)
	if err != nil {
		t.Fatalf("MediaURLs failed: %v", err)
	}

	want := []string{
		"https://example.com/uploads/photo.jpg",
		"https://example.com/uploads/photo-150x100.jpg",
		"https://example.com/uploads/photo-300x200.jpg",
	}
	if len(urls) != len(want) {
		t.Fatalf("got %d urls %v, want %d", len(urls), urls, len(want))
	}
	if urls[0] != want[0] {
		t.Errorf("first url = %q, want canonical %q", urls[0], want[0])
	}
	seen := make(map[string]bool)
	for _, u := range urls {
		if seen[u] {
			t.Errorf("duplicate url %q", u)
		}
		seen[u] = true
	}
	for _, w := range want {
		if !seen[w] {
			t.Errorf("missing url %q", w)
		}
	}
}

func TestMediaURLsEmptyWhenNothingRegistered(t *testing.T) {
	src := newFakeSource()
	r := NewResolver(src)

	urls, err := r.MediaURLs(99)
	if err != nil {
		t.Fatalf("MediaURLs failed: %v", err)
	}
	if len(urls) != 0 {
		t.Fatalf("expected empty set, got %v", urls)
	}
}

func TestMediaURLsFallsBackToFilePath(t *testing.T) {
	src := newFakeSource()
	src.relPaths[5] = "2026/08/fresh-upload.jpg"
	r := NewResolver(src)

	urls, err := r.MediaURLs(5)
	if err != nil {
		t.Fatalf("MediaURLs failed: %v", err)
	}
	want := "https://example.com/uploads/2026/08/fresh-upload.jpg"
	if len(urls) != 1 || urls[0] != want {
		t.Fatalf("got %v, want [%s]", urls, want)
	}
}

func TestFirstContentImageFromMediaBlock(t *testing.T) {
	src := newFakeSource()
	src.addAsset(3, "hero")
	r := NewResolver(src)

	item := ContentItem{
		Blocks: []ContentBlock{
			{Name: "core/paragraph", InnerHTML: "<p>hello</p>"},
			{Name: "core/image", MediaID: 3},
		},
	}
	url, ok := r.FirstContentImage(item)
	if !ok {
		t.Fatal("expected an image")
	}
	if url != "https://example.com/uploads/hero.jpg" {
		t.Errorf("url = %q", url)
	}
}

func TestFirstContentImageFromLiteralBlockURL(t *testing.T) {
	r := NewResolver(newFakeSource())

	item := ContentItem{
		Blocks: []ContentBlock{
			{Name: "core/embed", URL: "https://cdn.example.com/pic.webp"},
		},
	}
	url, ok := r.FirstContentImage(item)
	if !ok || url != "https://cdn.example.com/pic.webp" {
		t.Fatalf("got %q ok=%v", url, ok)
	}
}

func TestFirstContentImageIgnoresNonImageBlockURL(t *testing.T) {
	r := NewResolver(newFakeSource())

	item := ContentItem{
		Blocks: []ContentBlock{
			{Name: "core/embed", URL: "https://example.com/video.mp4"},
		},
	}
	if url, ok := r.FirstContentImage(item); ok {
		t.Fatalf("expected no image, got %q", url)
	}
}

func TestFirstContentImageFromBlockMarkup(t *testing.T) {
	r := NewResolver(newFakeSource())

	item := ContentItem{
		Blocks: []ContentBlock{
			{Name: "core/html", InnerHTML: `<figure><img src="https://example.com/inline.png" alt=""></figure>`},
		},
	}
	url, ok := r.FirstContentImage(item)
	if !ok || url != "https://example.com/inline.png" {
		t.Fatalf("got %q ok=%v", url, ok)
	}
}

func TestFirstContentImageRawContentFallback(t *testing.T) {
	r := NewResolver(newFakeSource())

	item := ContentItem{
		Content: `<p>Intro</p><img src="https://example.com/legacy.jpg"><img src="https://example.com/second.jpg">`,
	}
	url, ok := r.FirstContentImage(item)
	if !ok || url != "https://example.com/legacy.jpg" {
		t.Fatalf("got %q ok=%v", url, ok)
	}
}

func TestFirstContentImageBlocksSuppressRawScan(t *testing.T) {
	r := NewResolver(newFakeSource())

	// Block-edited content with no image blocks: the raw markup may still
	// contain icon <img> tags, which must not be picked up.
	item := ContentItem{
		Content: `<img src="https://example.com/icon.svg">`,
		Blocks: []ContentBlock{
			{Name: "core/paragraph", InnerHTML: "<p>text only</p>"},
		},
	}
	if url, ok := r.FirstContentImage(item); ok {
		t.Fatalf("expected no image, got %q", url)
	}
}

func TestFirstContentImageNone(t *testing.T) {
	r := NewResolver(newFakeSource())

	if url, ok := r.FirstContentImage(ContentItem{Content: "<p>plain</p>"}); ok {
		t.Fatalf("expected no image, got %q", url)
	}
}
