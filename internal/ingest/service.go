package ingest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ServicerFeed/internal/checksum"
	"ServicerFeed/internal/feed"
	"ServicerFeed/internal/loader"
	"ServicerFeed/internal/logger"
	"ServicerFeed/internal/manifest"
	"ServicerFeed/internal/normalize"
	"ServicerFeed/internal/remote"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Options for one ingestion run.
type Options struct {
	// Kind restricts the run to one kind; accepts kind names or aliases.
	Kind string
	// LatestOnly keeps only the most recent remote object per kind,
	// regardless of whether it was already processed.
	LatestOnly bool
	BatchSize  int
	// DryRun classifies, normalizes, and dedup-checks without writing to
	// storage or the manifest.
	DryRun bool
	ReportSkips bool
	// Force bypasses the manifest's already-processed check.
	Force bool
}

// Summary is what one run did, for the CLI's warnings payload and exit code.
type Summary struct {
	RunID             string
	FilesProcessed    int
	FilesSkipped      int
	FilesFailed       int
	FilesUnclassified int
	RowsRead          int
	RowsInserted      int
	RowsSkipped       int
	Warnings          []string
	Failures          []string
}

// Failed reports whether the run should exit non-zero: structural or
// download failures. Unclassified files and row-level skips are warnings.
func (s Summary) Failed() bool {
	return s.FilesFailed > 0
}

// Ledger is the slice of the manifest the service needs.
type Ledger interface {
	HasProcessed(ctx context.Context, filename string) (bool, error)
	Get(ctx context.Context, filename string) (*manifest.Entry, error)
	RecordAttempt(ctx context.Context, e manifest.Entry) error
}

// FileLoader lands one file's normalized rows.
type FileLoader interface {
	Load(ctx context.Context, spec *feed.Spec, asOfDate string, rows []map[string]string, opts loader.Options) (loader.Result, error)
}

// Service runs the ingestion pipeline: list, classify, filter against the
// manifest, download, normalize, load, record. Files are processed strictly
// one at a time; the ledger has no concurrency control below the run lock.
type Service struct {
	connector remote.Connector
	ledger    Ledger
	loader    FileLoader
	now       func() time.Time
}

func NewService(connector remote.Connector, ledger Ledger, fileLoader FileLoader) *Service {
	return &Service{connector: connector, ledger: ledger, loader: fileLoader, now: time.Now}
}

type candidate struct {
	obj remote.Object
	cls feed.Classification
}

// Run executes one ingestion pass. Connectivity errors are returned and fail
// the run; everything per-file is accumulated into the summary and the
// manifest.
func (s *Service) Run(ctx context.Context, opts Options) (Summary, error) {
	sum := Summary{RunID: uuid.New().String()}

	var kindFilter feed.Kind
	if opts.Kind != "" {
		k, ok := feed.KindFromName(opts.Kind)
		if !ok {
			return sum, errors.Errorf("unknown kind %q", opts.Kind)
		}
		kindFilter = k
	}

	logger.Audit("run %s starting (kind=%q latest-only=%v dry-run=%v force=%v)",
		sum.RunID, opts.Kind, opts.LatestOnly, opts.DryRun, opts.Force)

	session, err := s.connector.Connect()
	if err != nil {
		return sum, err
	}
	defer session.Close()

	objects, err := session.List()
	if err != nil {
		return sum, err
	}
	logger.Audit("run %s: %d remote objects listed", sum.RunID, len(objects))

	candidates := s.classifyAll(objects, kindFilter, &sum)
	if opts.LatestOnly {
		candidates = latestPerKind(candidates)
	}

	for _, c := range candidates {
		s.processOne(ctx, session, c, opts, &sum)
	}

	logger.Audit("run %s done: processed=%d skipped=%d failed=%d unclassified=%d inserted=%d",
		sum.RunID, sum.FilesProcessed, sum.FilesSkipped, sum.FilesFailed,
		sum.FilesUnclassified, sum.RowsInserted)
	return sum, nil
}

func (s *Service) classifyAll(objects []remote.Object, kindFilter feed.Kind, sum *Summary) []candidate {
	var out []candidate
	for _, obj := range objects {
		cls, err := feed.Classify(obj.Name)
		if err != nil {
			sum.FilesUnclassified++
			warn := fmt.Sprintf("unclassified remote object %q", obj.Name)
			sum.Warnings = append(sum.Warnings, warn)
			logger.Warn("%s", warn)
			continue
		}
		if kindFilter != "" && cls.Kind != kindFilter {
			continue
		}
		out = append(out, candidate{obj: obj, cls: cls})
	}
	return out
}

// latestPerKind keeps only the newest object of each kind, preferring the
// embedded as-of date and falling back to the remote modification time.
func latestPerKind(candidates []candidate) []candidate {
	best := map[feed.Kind]candidate{}
	for _, c := range candidates {
		cur, ok := best[c.cls.Kind]
		if !ok || newer(c, cur) {
			best[c.cls.Kind] = c
		}
	}
	out := make([]candidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].obj.Name < out[j].obj.Name })
	return out
}

func newer(a, b candidate) bool {
	if a.cls.AsOfDate != b.cls.AsOfDate {
		return a.cls.AsOfDate > b.cls.AsOfDate
	}
	return a.obj.ModifiedAt.After(b.obj.ModifiedAt)
}

func (s *Service) processOne(ctx context.Context, session remote.Session, c candidate, opts Options, sum *Summary) {
	name := c.obj.Name
	spec := feed.SpecFor(c.cls.Kind)

	if !opts.Force {
		done, err := s.ledger.HasProcessed(ctx, name)
		if err != nil {
			s.failFile(ctx, c, opts, sum, "", errors.Wrap(err, "manifest lookup"))
			return
		}
		if done {
			sum.FilesSkipped++
			// the prior entry's row count feeds the summary so a re-run
			// reports the file's rows as skipped rather than vanished
			if prior, perr := s.ledger.Get(ctx, name); perr != nil {
				logger.Warn("%s: manifest lookup: %v", name, perr)
			} else if prior != nil {
				sum.RowsSkipped += prior.RowsRead
			}
			logger.Audit("skipping %s: already processed (use --force to reprocess)", name)
			return
		}
	}

	data, err := session.Download(name, c.obj.Size)
	if err != nil {
		s.failFile(ctx, c, opts, sum, "", err)
		return
	}
	hash := checksum.Digest(data)

	prior, err := s.ledger.Get(ctx, name)
	if err != nil {
		logger.Warn("%s: manifest lookup for hash check: %v", name, err)
	} else if prior != nil && prior.ContentHash != "" {
		if checksum.Matches(prior.ContentHash, data) {
			logger.Audit("%s: content unchanged since last attempt (hash %s)", name, hash[:12])
		} else {
			// same name, different bytes: recorded as a fresh attempt; the
			// storage-level dedup keeps overlapping keys from doubling
			logger.Warn("%s: content changed since last attempt, reprocessing", name)
		}
	}

	records, err := normalize.ParseTabular(name, data)
	if err != nil {
		s.failFile(ctx, c, opts, sum, hash, err)
		return
	}
	rows, err := normalize.Normalize(records, spec)
	if err != nil {
		s.failFile(ctx, c, opts, sum, hash, err)
		return
	}

	res, err := s.loader.Load(ctx, spec, c.cls.AsOfDate, rows, loader.Options{
		BatchSize:   opts.BatchSize,
		DryRun:      opts.DryRun,
		ReportSkips: opts.ReportSkips,
	})
	if err != nil {
		s.failFile(ctx, c, opts, sum, hash, err)
		return
	}

	sum.FilesProcessed++
	sum.RowsRead += res.RowsRead
	sum.RowsInserted += res.RowsInserted
	sum.RowsSkipped += res.RowsSkipped
	for _, e := range res.Errors {
		sum.Warnings = append(sum.Warnings, name+": "+e)
	}
	if opts.ReportSkips {
		for _, r := range res.Skips {
			sum.Warnings = append(sum.Warnings, name+": "+r)
		}
	}

	logger.Audit("%s: read=%d inserted=%d skipped=%d errors=%d (as-of %s)",
		name, res.RowsRead, res.RowsInserted, res.RowsSkipped, len(res.Errors), c.cls.AsOfDate)

	if opts.DryRun {
		return
	}
	entry := manifest.Entry{
		Filename:     name,
		RunID:        sum.RunID,
		ContentHash:  hash,
		DownloadedAt: s.now().UTC(),
		Kind:         c.cls.Kind,
		AsOfDate:     c.cls.AsOfDate,
		Status:       manifest.StatusCompleted,
		RowsRead:     res.RowsRead,
		RowsInserted: res.RowsInserted,
		RowsSkipped:  res.RowsSkipped,
		Errors:       res.Errors,
	}
	if err := s.ledger.RecordAttempt(ctx, entry); err != nil {
		sum.FilesFailed++
		sum.Failures = append(sum.Failures, fmt.Sprintf("%s: recording manifest entry: %v", name, err))
		logger.Error("%s: recording manifest entry: %v", name, err)
	}
}

// failFile records a failed attempt (zero rows inserted) and moves on; the
// run continues to the next file.
func (s *Service) failFile(ctx context.Context, c candidate, opts Options, sum *Summary, hash string, cause error) {
	sum.FilesFailed++
	sum.Failures = append(sum.Failures, fmt.Sprintf("%s: %v", c.obj.Name, cause))
	logger.Error("%s: %v", c.obj.Name, cause)

	if opts.DryRun {
		return
	}
	entry := manifest.Entry{
		Filename:     c.obj.Name,
		RunID:        sum.RunID,
		ContentHash:  hash,
		DownloadedAt: s.now().UTC(),
		Kind:         c.cls.Kind,
		AsOfDate:     c.cls.AsOfDate,
		Status:       manifest.StatusFailed,
		Errors:       []string{cause.Error()},
	}
	if err := s.ledger.RecordAttempt(ctx, entry); err != nil {
		logger.Error("%s: recording failed attempt: %v", c.obj.Name, err)
	}
}
