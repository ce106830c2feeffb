package contract

import "io"

// MediaStore abstracts media file storage. The scheduling core only ever
// checks existence and resolves paths; saving and deleting are used by
// the transport glue and queue-clearing operations.
type MediaStore interface {
	// Save stores content under a generated unique name and returns the
	// stored path.
	Save(r io.Reader, originalName string) (string, error)

	// Exists reports whether the media behind path is still present.
	Exists(path string) bool

	// Resolve returns a usable path for the reference, retrying under the
	// canonical storage root by bare filename before giving up.
	Resolve(path string) (string, bool)

	Delete(path string) error
}
