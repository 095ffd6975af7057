package storage

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	appconfig "github.com/pgvault/pgvault/internal/config"
)

// DriveTarget uploads verified artifacts into a Google Drive folder,
// authenticated with a service-account credentials file.
type DriveTarget struct {
	service  *drive.Service
	folderID string
}

func NewGDrive(cfg *appconfig.UploadTarget) (*DriveTarget, error) {
	service, err := drive.NewService(context.Background(),
		option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &DriveTarget{
		service:  service,
		folderID: cfg.FolderID,
	}, nil
}

func (g *DriveTarget) Upload(ctx context.Context, localPath string, remoteName string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer file.Close()

	meta := &drive.File{
		Name:    remoteName,
		Parents: []string{g.folderID},
	}

	if _, err := g.service.Files.Create(meta).Media(file).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to upload to gdrive: %w", err)
	}

	return nil
}
