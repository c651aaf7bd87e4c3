// Package media owns the on-disk layout of the migration bundle and saves
// the images and documents referenced by crawled pages.
//
// Images land in media/images/<context>/ (heroes, content, logos, team),
// documents in media/documents/. File names keep the original base name
// and add a short SHA3 digest of the source URL, so two different files
// called logo.png never overwrite each other.
//
// Downloaded JPEG and TIFF files can be inspected for EXIF metadata; the
// summary is attached to the image record so the migration team sees
// which photos still carry GPS coordinates or camera details.
package media
