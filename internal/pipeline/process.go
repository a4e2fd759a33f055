package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"hargalist/internal"
	"hargalist/internal/config"
	"hargalist/internal/extract"
	"hargalist/internal/llm"
	"hargalist/internal/match"
	"hargalist/internal/normalize"
	"hargalist/internal/storage"
	"hargalist/internal/util"
)

var errCancelled = errors.New("cancelled by user")

type Service struct {
	db      *storage.DB
	cfg     config.Config
	client  *llm.Client
	cascade *extract.Cascade
}

// NewService wires the pipeline. client may be nil; the cascade then skips
// the AI-backed steps and the normalizer runs rules-only.
func NewService(db *storage.DB, cfg config.Config, client *llm.Client) *Service {
	var vision extract.VisionClient
	if client != nil {
		vision = client
	}
	return &Service{
		db:      db,
		cfg:     cfg,
		client:  client,
		cascade: extract.NewCascade(cfg, vision),
	}
}

// ProcessUpload drives one upload through the whole pipeline: extraction
// cascade, normalization, matching, price reconciliation. The terminal
// status and run metadata are always written, even on failure.
func (s *Service) ProcessUpload(ctx context.Context, id string) error {
	claimed, err := s.db.ClaimUpload(id)
	if err != nil {
		return err
	}
	if !claimed {
		return fmt.Errorf("upload %s is not pending", id)
	}

	up, err := s.db.GetUpload(id)
	if err != nil {
		return err
	}
	if up == nil {
		return fmt.Errorf("upload not found: %s", id)
	}

	start := time.Now()
	out, err := s.run(ctx, *up)
	out.ID = id
	out.ProcessingMs = time.Since(start).Milliseconds()
	out.ProgressPct = 100
	if s.client != nil {
		out.CostUSD = s.client.CostUSD(out.TokensUsed)
	}

	if err != nil {
		out.Status = internal.UploadFailed
		out.Stage = "failed"
		if errors.Is(err, errCancelled) {
			out.Stage = "cancelled"
		}
		out.ErrorMessage = util.StringPtr(err.Error())
		if finishErr := s.db.FinishUpload(out); finishErr != nil {
			return finishErr
		}
		return err
	}

	out.Stage = "done"
	if len(out.Errors) > 0 {
		out.Status = internal.UploadCompletedWithErrors
	} else {
		out.Status = internal.UploadCompleted
	}
	return s.db.FinishUpload(out)
}

// run does the stage work and returns the metadata to persist. It never
// writes the terminal status itself.
func (s *Service) run(ctx context.Context, up internal.UploadRecord) (internal.UploadRecord, error) {
	out := internal.UploadRecord{ID: up.ID}

	raw, err := os.ReadFile(up.StoredPath)
	if err != nil {
		return out, fmt.Errorf("read upload: %w", err)
	}
	doc := internal.Document{Filename: up.Filename, Mime: up.Mime, Bytes: raw}

	if err := s.checkCancel(ctx, up.ID); err != nil {
		return out, err
	}
	_ = s.db.UpdateUploadProgress(up.ID, "extract", 10)

	res, method, steps, err := s.cascade.Run(ctx, doc)
	out.TokensUsed += res.TokensUsed
	// Step reasons are recorded before the error check so a failed cascade
	// still leaves a per-method trail on the upload.
	for _, step := range steps {
		if step.Outcome != extract.OutcomeSuccess {
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %s", step.Method, step.Reason))
		}
	}
	if err != nil {
		return out, fmt.Errorf("extraction: %w", err)
	}
	out.BestMethod = util.StringPtr(string(method))
	out.Completeness = res.Completeness
	fmt.Printf("upload %s: extracted %d rows via %s\n", up.ID, len(res.Rows), method)

	if err := s.checkCancel(ctx, up.ID); err != nil {
		return out, err
	}
	_ = s.db.UpdateUploadProgress(up.ID, "normalize", 45)

	var completer normalize.Completer
	if s.client != nil {
		completer = s.client
	}
	normalizer := normalize.NewNormalizer(s.cfg, completer)
	rows, stats, err := normalizer.Normalize(ctx, res.Rows)
	out.TokensUsed += stats.TokensUsed
	if err != nil {
		return out, fmt.Errorf("normalize: %w", err)
	}
	out.Errors = append(out.Errors, stats.Errors...)

	if err := s.checkCancel(ctx, up.ID); err != nil {
		return out, err
	}
	_ = s.db.UpdateUploadProgress(up.ID, "match", 70)

	supplier, err := s.resolveSupplier(up, res.SupplierGuess)
	if err != nil {
		return out, err
	}
	_ = s.db.SetUploadSupplier(up.ID, supplier.ID)

	applied, err := s.applyRows(up.ID, supplier.ID, rows, &out)
	if err != nil {
		return out, err
	}
	fmt.Printf("upload %s: %d price records applied for %s\n", up.ID, applied, supplier.Name)

	return out, nil
}

// applyRows groups, matches and reconciles the normalized rows. Individual
// row failures are collected instead of aborting the batch.
func (s *Service) applyRows(uploadID string, supplierID int64, rows []internal.NormalizedRow, out *internal.UploadRecord) (int, error) {
	products, err := s.db.ListProducts()
	if err != nil {
		return 0, err
	}
	matcher := match.NewMatcher(s.cfg, products)
	groups := match.GroupRows(rows)

	applied := 0
	for _, decision := range matcher.DecideAll(groups) {
		g := decision.Group

		if decision.ToQueue {
			entry := internal.UnmatchedEntry{
				UploadID:   util.StringPtr(uploadID),
				SupplierID: supplierID,
				RawName:    g.Representative.Raw.Name,
				RawUnit:    util.StringPtr(g.Representative.Raw.Unit),
				Context:    util.StringPtr(g.Representative.Raw.Context),
			}
			if err := s.db.EnqueueUnmatched(entry); err != nil {
				out.Errors = append(out.Errors, fmt.Sprintf("queue %q: %v", g.StdName, err))
			}
			continue
		}

		product := decision.Product
		if product == nil {
			created, err := s.db.FindOrCreateProduct(internal.ProductRecord{
				RawName:     g.Representative.Raw.Name,
				DisplayName: g.StdName,
				StdName:     g.StdName,
				Category:    g.Representative.Category,
				Unit:        util.StringPtr(g.Representative.Raw.Unit),
				StdUnit:     util.StringPtr(g.StdUnit),
			})
			if err != nil {
				out.Errors = append(out.Errors, fmt.Sprintf("product %q: %v", g.StdName, err))
				continue
			}
			product = &created
		}

		change := storage.PriceChange{
			ProductID:  product.ID,
			SupplierID: supplierID,
			Amount:     g.Representative.UnitPrice,
			UploadID:   util.StringPtr(uploadID),
		}
		if g.StdUnit != "" {
			change.Unit = util.StringPtr(g.StdUnit)
		}
		if _, err := s.db.UpsertPrice(change); err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("price %q: %v", g.StdName, err))
			continue
		}
		applied++
	}
	return applied, nil
}

// resolveSupplier picks the attribution source in priority order: explicit
// assignment, caller-provided hint, document guess, the configured fallback
// name. The hint outranks the guess because it comes from a person (CLI
// flag, mail sender), not a heuristic.
func (s *Service) resolveSupplier(up internal.UploadRecord, guess string) (internal.SupplierRecord, error) {
	if up.SupplierID != nil {
		existing, err := s.db.GetSupplier(*up.SupplierID)
		if err != nil {
			return internal.SupplierRecord{}, err
		}
		if existing != nil {
			return *existing, nil
		}
	}

	hint := ""
	if up.SupplierHint != nil {
		hint = *up.SupplierHint
	}
	name := util.FirstNonEmpty(hint, guess, s.cfg.FallbackSupplier)
	if name == "" {
		name = "Unattributed Supplier"
	}
	return s.db.FindOrCreateSupplier(name)
}

func (s *Service) checkCancel(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", errCancelled, err)
	}
	cancelled, err := s.db.UploadCancelRequested(id)
	if err != nil {
		return err
	}
	if cancelled {
		return errCancelled
	}
	return nil
}

// ProcessPending runs the pipeline over pending uploads with a small worker
// pool. Per-upload failures are reported, not fatal.
func (s *Service) ProcessPending(ctx context.Context, limit int) (int, error) {
	pending, err := s.db.ListUploadsByStatus(internal.UploadPending, limit)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	workers := s.cfg.ProcessWorkers
	if workers < 1 {
		workers = 1
	}
	if workers > len(pending) {
		workers = len(pending)
	}

	jobs := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex
	processed := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				if err := s.ProcessUpload(ctx, id); err != nil {
					fmt.Printf("upload %s failed: %v\n", id, err)
					continue
				}
				mu.Lock()
				processed++
				mu.Unlock()
			}
		}()
	}

	for _, up := range pending {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return processed, ctx.Err()
		case jobs <- up.ID:
		}
	}
	close(jobs)
	wg.Wait()
	return processed, nil
}

// SweepStale fails processing uploads whose worker disappeared.
func (s *Service) SweepStale() (int64, error) {
	min := s.cfg.StaleUploadMin
	if min <= 0 {
		min = 15
	}
	return s.db.SweepStaleUploads(min)
}
