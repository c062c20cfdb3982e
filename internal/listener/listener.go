package listener

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"oferta/internal"
	"oferta/internal/config"
	"oferta/internal/connectors"
	"oferta/internal/pipeline"
	"oferta/internal/storage"
)

// Service polls a mailbox, imports the spreadsheets it finds and keeps an
// up to date workbook per touched dataset under OUTPUT_DIR/listener.
type Service struct {
	db        *storage.DB
	cfg       config.Config
	imports   *pipeline.ImportService
	connector connectors.MailConnector
}

type CycleResult struct {
	Fetched   int
	Stored    int
	Processed int
	Exported  []string
}

func NewService(db *storage.DB, cfg config.Config, imports *pipeline.ImportService, connector connectors.MailConnector) *Service {
	return &Service{db: db, cfg: cfg, imports: imports, connector: connector}
}

func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.MailListenerIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	for {
		res, err := s.RunCycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Printf("listener cycle error: %v\n", err)
		} else {
			fmt.Printf("listener cycle done provider=%s fetched=%d stored=%d processed=%d exported=%d\n",
				s.connector.Provider(), res.Fetched, res.Stored, res.Processed, len(res.Exported))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	fetch := connectors.NewFetchService(s.db, s.cfg.RawMailDir, s.connector)
	fetched, err := fetch.FetchAndStore(ctx, s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return CycleResult{}, err
	}
	res := CycleResult{Fetched: fetched.Fetched, Stored: fetched.Stored}

	processed, reports, err := s.imports.ProcessPending(ctx, s.cfg.MailListenerProcessBatch, s.connector.Provider())
	res.Processed = processed
	if err != nil {
		return res, err
	}

	if s.cfg.MailListenerAutoExport {
		exported, err := s.exportTouched(reports)
		res.Exported = exported
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

// exportTouched rewrites the workbook of every dataset that gained rows.
func (s *Service) exportTouched(reports []internal.ImportReport) ([]string, error) {
	var touched []internal.Domain
	for _, r := range reports {
		if r.Merge.AddedCount > 0 && !slices.Contains(touched, r.Domain) {
			touched = append(touched, r.Domain)
		}
	}

	var paths []string
	for _, d := range touched {
		ds, err := s.imports.Dataset(d)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(s.cfg.OutputDir, "listener", string(d)+".xlsx")
		if err := pipeline.ExportDatasetToXLSX(ds, path); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
