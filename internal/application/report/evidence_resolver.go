package report

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/foodaudit/backend/internal/domain/audit"
	"github.com/foodaudit/backend/internal/domain/report"
	"github.com/foodaudit/backend/internal/domain/shared"
	"github.com/foodaudit/backend/internal/infrastructure/retry"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultEvidenceConcurrency caps simultaneous object store downloads
	DefaultEvidenceConcurrency = 5
	// DefaultEvidenceTimeout bounds one image download including retries
	DefaultEvidenceTimeout = 10 * time.Second
)

// EvidenceFailure describes one image that could not be attached
type EvidenceFailure struct {
	EvidenceID uuid.UUID
	ItemID     uuid.UUID
	StorageKey string
	Err        error
}

// EvidenceResult is the outcome of attaching evidence to a set of items
type EvidenceResult struct {
	Summary  report.EvidenceSummary
	Failures []EvidenceFailure
}

// CountFor returns how many images were attached to itemID
func (r EvidenceResult) CountFor(itemID uuid.UUID) int {
	for _, item := range r.Summary.Items {
		if item.ItemID == itemID {
			return len(item.Images)
		}
	}
	return 0
}

// EvidenceResolver downloads and embeds evidence images for checklist items.
// A failed image is logged and skipped; it never fails its siblings.
type EvidenceResolver struct {
	index       audit.EvidenceIndex
	objects     audit.ObjectReader
	concurrency int
	timeout     time.Duration
	retry       retry.Config
	logger      *zap.Logger
}

// EvidenceOption configures an EvidenceResolver
type EvidenceOption func(*EvidenceResolver)

// WithConcurrency sets the download concurrency cap
func WithConcurrency(n int) EvidenceOption {
	return func(r *EvidenceResolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithFetchTimeout sets the per-image timeout
func WithFetchTimeout(d time.Duration) EvidenceOption {
	return func(r *EvidenceResolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithEvidenceRetry sets the retry policy for index reads and downloads
func WithEvidenceRetry(cfg retry.Config) EvidenceOption {
	return func(r *EvidenceResolver) {
		r.retry = cfg
	}
}

// WithEvidenceLogger sets the logger
func WithEvidenceLogger(logger *zap.Logger) EvidenceOption {
	return func(r *EvidenceResolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewEvidenceResolver creates a resolver over an evidence index and object store
func NewEvidenceResolver(index audit.EvidenceIndex, objects audit.ObjectReader, opts ...EvidenceOption) *EvidenceResolver {
	r := &EvidenceResolver{
		index:       index,
		objects:     objects,
		concurrency: DefaultEvidenceConcurrency,
		timeout:     DefaultEvidenceTimeout,
		retry:       retry.DefaultConfig(),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Attach fetches every image referenced by itemIDs. Images are grouped per
// item in itemIDs order, oldest first within an item. An error is returned
// only when the reference index cannot be read or ctx is done; individual
// download failures are reported in the result.
func (r *EvidenceResolver) Attach(ctx context.Context, itemIDs []uuid.UUID) (EvidenceResult, error) {
	result := EvidenceResult{Summary: report.EvidenceSummary{Items: []report.ItemEvidence{}}}
	if len(itemIDs) == 0 {
		return result, nil
	}

	refs, err := r.listRefs(ctx, itemIDs)
	if err != nil {
		return result, err
	}
	result.Summary.Requested = len(refs)
	if len(refs) == 0 {
		return result, nil
	}

	images := make([]*audit.EvidenceImage, len(refs))
	failures := make([]error, len(refs))

	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)
	for i := range refs {
		i := i
		g.Go(func() error {
			img, err := r.fetch(ctx, refs[i])
			if err != nil {
				failures[i] = err
				return nil
			}
			images[i] = &img
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return result, err
	}

	byItem := make(map[uuid.UUID][]audit.EvidenceImage, len(itemIDs))
	for i, ref := range refs {
		if failures[i] != nil {
			result.Failures = append(result.Failures, EvidenceFailure{
				EvidenceID: ref.ID,
				ItemID:     ref.ItemID,
				StorageKey: ref.StorageKey,
				Err:        failures[i],
			})
			r.logger.Warn("Evidence image skipped",
				zap.String("evidence_id", ref.ID.String()),
				zap.String("item_id", ref.ItemID.String()),
				zap.String("storage_key", ref.StorageKey),
				zap.Error(failures[i]))
			continue
		}
		byItem[ref.ItemID] = append(byItem[ref.ItemID], *images[i])
	}

	for _, id := range itemIDs {
		imgs, ok := byItem[id]
		if !ok {
			continue
		}
		result.Summary.Items = append(result.Summary.Items, report.ItemEvidence{ItemID: id, Images: imgs})
		result.Summary.Attached += len(imgs)
		delete(byItem, id)
	}
	result.Summary.Failed = len(result.Failures)

	r.logger.Debug("Evidence attached",
		zap.Int("requested", result.Summary.Requested),
		zap.Int("attached", result.Summary.Attached),
		zap.Int("failed", result.Summary.Failed))
	return result, nil
}

// listRefs reads the reference index and orders refs by item then creation time
func (r *EvidenceResolver) listRefs(ctx context.Context, itemIDs []uuid.UUID) ([]audit.EvidenceRef, error) {
	var refs []audit.EvidenceRef
	err := retry.Do(ctx, r.retry, func(ctx context.Context) error {
		var err error
		refs, err = r.index.FindByItems(ctx, itemIDs)
		return err
	}, nil)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, shared.NewExternalFetchError("evidence index", err)
	}

	position := make(map[uuid.UUID]int, len(itemIDs))
	for i, id := range itemIDs {
		if _, ok := position[id]; !ok {
			position[id] = i
		}
	}
	wanted := refs[:0]
	for _, ref := range refs {
		if _, ok := position[ref.ItemID]; ok {
			wanted = append(wanted, ref)
		}
	}
	sort.SliceStable(wanted, func(a, b int) bool {
		pa, pb := position[wanted[a].ItemID], position[wanted[b].ItemID]
		if pa != pb {
			return pa < pb
		}
		return wanted[a].CreatedAt.Before(wanted[b].CreatedAt)
	})
	return wanted, nil
}

func (r *EvidenceResolver) fetch(ctx context.Context, ref audit.EvidenceRef) (audit.EvidenceImage, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var (
		data        []byte
		contentType string
	)
	err := retry.Do(fetchCtx, r.retry, func(ctx context.Context) error {
		var err error
		data, contentType, err = r.objects.GetObject(ctx, ref.StorageKey)
		return err
	}, func(err error, attempt int) {
		r.logger.Debug("Retrying evidence download",
			zap.String("storage_key", ref.StorageKey),
			zap.Int("attempt", attempt),
			zap.Error(err))
	})
	if err != nil {
		return audit.EvidenceImage{}, shared.NewExternalFetchError("evidence object "+ref.StorageKey, err)
	}
	return audit.NewEvidenceImage(ref, data, contentType), nil
}
