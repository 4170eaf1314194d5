package edgepurge

// ContentSource is the read-only view of the hosting CMS that the engine
// queries when resolving purge targets. Implementations must treat every
// method as a pure read: the engine never writes back.
//
// URL-returning methods report an empty string (and nil error) when the
// asset exists but has no URL of that shape; errors are reserved for lookup
// failures in the source itself.
type ContentSource interface {
	// Item returns the content item with the given identifier.
	Item(id int64) (ContentItem, error)

	// AttachedMedia lists the identifiers of image assets attached to an item.
	AttachedMedia(itemID int64) ([]int64, error)

	// CanonicalURL returns the full-size URL of a media asset.
	CanonicalURL(assetID int64) (string, error)

	// VariantURL returns the URL of one registered size variant of an asset.
	VariantURL(assetID int64, size string) (string, error)

	// SizeNames returns the registered size-variant names, in registry order.
	SizeNames() []string

	// RelativeFilePath returns the asset's on-disk path relative to the
	// upload base, used to reconstruct a URL when the size registry has
	// nothing for the asset yet.
	RelativeFilePath(assetID int64) (string, error)

	// BaseUploadURL returns the public base URL under which uploaded files
	// are served.
	BaseUploadURL() string
}
