package domain

import "context"

// Uploader ships one verified artifact to a remote destination. Upload
// failures are reported to the caller as diagnostics; they never invalidate
// the local backup.
type Uploader interface {
	Upload(ctx context.Context, localPath string, remoteName string) error
}
