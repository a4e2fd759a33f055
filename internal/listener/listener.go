package listener

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"hargalist/internal/config"
	"hargalist/internal/connectors"
	gmailconnector "hargalist/internal/connectors/gmail"
	imapconnector "hargalist/internal/connectors/imap"
	"hargalist/internal/pipeline"
	"hargalist/internal/storage"
)

// Service polls a mailbox for supplier price lists, registers each new
// message as an upload, and drives the processing pipeline over the
// pending queue.
type Service struct {
	db   *storage.DB
	cfg  config.Config
	pipe *pipeline.Service
}

func NewService(db *storage.DB, cfg config.Config, pipe *pipeline.Service) *Service {
	return &Service{db: db, cfg: cfg, pipe: pipe}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.runCycle(ctx); err != nil {
			fmt.Printf("listener cycle error: %v\n", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(s.cfg.MailListenerIntervalSec) * time.Second):
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
	mailConnector, err := s.makeConnector(provider)
	if err != nil {
		return err
	}

	fetchService := connectors.NewFetchService(s.db, s.cfg.MailDir, mailConnector, s.pipe)
	fetchResult, err := fetchService.FetchAndStore(s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return err
	}

	if swept, err := s.pipe.SweepStale(); err != nil {
		return err
	} else if swept > 0 {
		fmt.Printf("listener: failed %d stale uploads\n", swept)
	}

	processed, err := s.pipe.ProcessPending(ctx, s.cfg.MailListenerBatch)
	if err != nil {
		return err
	}

	if s.cfg.MailListenerAutoExport && processed > 0 {
		if err := s.exportActivePrices(); err != nil {
			return err
		}
	}

	fmt.Printf("listener cycle done provider=%s fetched=%d registered=%d skipped=%d processed=%d\n",
		provider, fetchResult.Fetched, fetchResult.Registered, fetchResult.Skipped, processed)
	return nil
}

func (s *Service) exportActivePrices() error {
	rows, err := pipeline.BuildExportRows(s.db, nil)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	filename := fmt.Sprintf("prices_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	outputPath := filepath.Join(s.cfg.OutputDir, "listener", filename)
	if err := pipeline.ExportPricesToXLSX(rows, outputPath); err != nil {
		return err
	}
	fmt.Printf("listener: exported %d active prices to %s\n", len(rows), outputPath)
	return nil
}

func (s *Service) makeConnector(provider string) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(s.cfg)
	case "imap":
		return imapconnector.NewConnector(s.cfg)
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}
