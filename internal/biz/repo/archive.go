package repo

import "context"

// ArchiveRepo stores report artifacts outside the process
type ArchiveRepo interface {
	// Put uploads an object under the configured prefix
	Put(ctx context.Context, name, contentType string, body []byte) error
}
