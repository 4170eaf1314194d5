package edgepurge

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Resolver turns content identifiers into the set of URLs a purge for that
// content must cover. It performs no network calls; everything is a pure
// function of the content source's state at call time.
type Resolver struct {
	source ContentSource
}

// NewResolver creates a Resolver over the given content source.
func NewResolver(source ContentSource) *Resolver {
	return &Resolver{source: source}
}

// MediaURLs returns the canonical URL of an asset followed by every distinct
// size-variant URL. Variants identical to the canonical URL are skipped.
// When the size registry yields nothing, the URL is reconstructed from the
// asset's relative file path under the upload base; an empty result means
// the asset has no reachable URL at all, which is valid during the window
// where upstream variant generation has not completed.
func (r *Resolver) MediaURLs(assetID int64) ([]string, error) {
	var urls []string
	seen := make(map[string]struct{})
	add := func(u string) {
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}

	canonical, err := r.source.CanonicalURL(assetID)
	if err != nil {
		return nil, fmt.Errorf("edgepurge: canonical url for asset %d: %w", assetID, err)
	}
	add(canonical)

	for _, size := range r.source.SizeNames() {
		u, err := r.source.VariantURL(assetID, size)
		if err != nil {
			return nil, fmt.Errorf("edgepurge: variant %q for asset %d: %w", size, assetID, err)
		}
		add(u)
	}

	if len(urls) > 0 {
		return urls, nil
	}

	rel, err := r.source.RelativeFilePath(assetID)
	if err != nil {
		return nil, fmt.Errorf("edgepurge: file path for asset %d: %w", assetID, err)
	}
	if rel == "" {
		return nil, nil
	}
	return []string{JoinUploadURL(r.source.BaseUploadURL(), rel)}, nil
}

// FirstContentImage returns the URL of the first image embedded in an item's
// content. Structured blocks are inspected first: an image block referencing
// a media identifier resolves through the source, a block carrying a literal
// image URL is accepted directly, and otherwise the block's markup is scanned
// for the first <img> tag. Raw content is only scanned when no structured
// blocks exist, which keeps unrelated markup (icons, decorations) from being
// picked up on block-edited content.
func (r *Resolver) FirstContentImage(item ContentItem) (string, bool) {
	for _, block := range item.Blocks {
		if block.MediaID != 0 && isImageBlock(block.Name) {
			u, err := r.source.CanonicalURL(block.MediaID)
			if err == nil && u != "" {
				return u, true
			}
		}
		if block.URL != "" && hasImageExtension(block.URL) {
			return block.URL, true
		}
		if block.InnerHTML != "" {
			if src := firstImgSrc(block.InnerHTML); src != "" {
				return src, true
			}
		}
	}
	if len(item.Blocks) == 0 && item.Content != "" {
		if src := firstImgSrc(item.Content); src != "" {
			return src, true
		}
	}
	return "", false
}

func isImageBlock(name string) bool {
	return name == "core/image" || strings.HasSuffix(name, "/image")
}

// hasImageExtension reports whether the URL path ends in a known image
// extension.
func hasImageExtension(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	}
	return false
}

// firstImgSrc returns the src of the first <img> tag in markup, or "".
func firstImgSrc(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return strings.TrimSpace(src)
}
