package gateway

import (
	"context"
	"net/http"

	"messagemaster/internal/models"
)

type backupLink struct {
	DownloadURL string `json:"downloadUrl"`
}

// GenerateBackup asks the backend to build a backup archive and returns where to fetch it.
func (c *Client) GenerateBackup(ctx context.Context) (string, error) {
	var out backupLink
	err := c.Do(ctx, Request{Method: http.MethodPost, Path: "/api/backup/generate-download", JSON: map[string]string{}, Out: &out})
	return out.DownloadURL, err
}

func (c *Client) SaveBackupToServer(ctx context.Context) (string, error) {
	var out messageResponse
	err := c.Do(ctx, Request{Method: http.MethodPost, Path: "/api/backup/save-to-server", JSON: map[string]string{}, Out: &out})
	return out.Message, err
}

type CleanupRequest struct {
	DataType string `json:"dataType"`
	FromDate string `json:"fromDate"`
	ToDate   string `json:"toDate"`
}

func (c *Client) CleanupData(ctx context.Context, in CleanupRequest) (string, error) {
	var out messageResponse
	err := c.Do(ctx, Request{Method: http.MethodDelete, Path: "/api/data/cleanup", JSON: in, Out: &out})
	return out.Message, err
}

func (c *Client) StorageUsage(ctx context.Context) (models.StorageUsage, error) {
	var out models.StorageUsage
	err := c.Do(ctx, Request{Path: "/api/admin/storage-usage", Out: &out})
	return out, err
}
