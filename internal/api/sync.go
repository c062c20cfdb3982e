package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"oferta/internal"
	"oferta/internal/config"
	"oferta/internal/pipeline"
	"oferta/internal/storage"
)

type SyncService struct {
	db      *storage.DB
	client  *Client
	imports *pipeline.ImportService
}

func NewSyncService(db *storage.DB, cfg config.Config, imports *pipeline.ImportService) *SyncService {
	return &SyncService{db: db, client: NewClient(cfg), imports: imports}
}

func lastPullKey(d internal.Domain) string {
	return "api.last_pull." + string(d)
}

// Pull replaces the local dataset of d with the api's rows. An empty
// answer leaves the local dataset as it is.
func (s *SyncService) Pull(ctx context.Context, d internal.Domain) (int, error) {
	rows, err := s.client.ListRecords(ctx, d)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	current, err := s.imports.Dataset(d)
	if err != nil {
		return 0, err
	}
	records, err := ToRecords(d, current.Schema, rows)
	if err != nil {
		return 0, fmt.Errorf("pull %s: %w", d, err)
	}
	if err := s.imports.Replace(d, records); err != nil {
		return 0, err
	}
	_ = s.db.SetMetadata(lastPullKey(d), time.Now().UTC().Format(time.RFC3339))
	return len(records), nil
}

func (s *SyncService) LastPull(d internal.Domain) (*string, error) {
	return s.db.GetMetadata(lastPullKey(d))
}

// UploadFile sends a workbook from disk to the api's upload endpoint for d.
func (s *SyncService) UploadFile(ctx context.Context, d internal.Domain, path string) (json.RawMessage, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return s.client.UploadSpreadsheet(ctx, d, filepath.Base(path), content)
}

// UploadDataset exports the local dataset of d and uploads the workbook.
func (s *SyncService) UploadDataset(ctx context.Context, d internal.Domain) (json.RawMessage, error) {
	ds, err := s.imports.Dataset(d)
	if err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	if err := pipeline.WriteDatasetXLSX(ds, buf); err != nil {
		return nil, err
	}
	return s.client.UploadSpreadsheet(ctx, d, string(d)+".xlsx", buf.Bytes())
}

func (s *SyncService) UploadHistory(ctx context.Context) (json.RawMessage, error) {
	return s.client.UploadHistory(ctx)
}
