package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/artifacts"
	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/catalog"
	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/models"
	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/taxonomy"
)

var ErrUnknownKind = errors.New("unknown classification kind")

type TrackReader interface {
	ReadTracks(ctx context.Context) (catalog.ReadResult, error)
}

type BucketReconciler interface {
	Reconcile(ctx context.Context, kind models.ClassificationKind, label string, uris []string) (models.BucketReport, error)
	ManagedPlaylists(ctx context.Context, labels []string) ([]models.Playlist, error)
	RemovePlaylist(ctx context.Context, p models.Playlist) error
}

type ReportStore interface {
	SaveRunReport(ctx context.Context, report models.RunReport) error
}

type Notifier interface {
	NotifyRun(ctx context.Context, report models.RunReport) error
}

type Options struct {
	// Resume reuses the track list saved by an earlier run instead of
	// reading the library again.
	Resume  bool
	DryRun  bool
	Workers int
}

type Service struct {
	reader     TrackReader
	reconciler BucketReconciler
	taxonomy   taxonomy.Taxonomy
	artifacts  artifacts.Store
	reports    ReportStore
	notifier   Notifier
	opts       Options
	now        func() time.Time
	log        *zap.Logger
}

// NewService wires the run pipeline. reports and notifier may be nil.
func NewService(
	reader TrackReader,
	reconciler BucketReconciler,
	tax taxonomy.Taxonomy,
	store artifacts.Store,
	reports ReportStore,
	notifier Notifier,
	opts Options,
	log *zap.Logger,
) *Service {
	if store == nil {
		store = artifacts.Discard{}
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	return &Service{
		reader:     reader,
		reconciler: reconciler,
		taxonomy:   tax,
		artifacts:  store,
		reports:    reports,
		notifier:   notifier,
		opts:       opts,
		now:        time.Now,
		log:        log,
	}
}

func (s *Service) ClassifyByGenre(tracks []models.Track) models.Buckets {
	return ClassifyGenres(tracks, s.taxonomy.Genres)
}

func (s *Service) ClassifyByLanguage(tracks []models.Track) models.Buckets {
	return ClassifyLanguages(tracks, s.taxonomy.Languages)
}

func (s *Service) ReconcileBucket(ctx context.Context, kind models.ClassificationKind, label string, uris []string) (models.BucketReport, error) {
	return s.reconciler.Reconcile(ctx, kind, label, uris)
}

// Run reads the library, classifies it and reconciles every bucket of the
// requested kind. The report is returned, saved and sent even when the run
// aborts; the error is set only for run-aborting failures.
func (s *Service) Run(ctx context.Context, kind models.ClassificationKind) (models.RunReport, error) {
	kinds, err := expandKind(kind)
	if err != nil {
		return models.RunReport{}, err
	}

	report, err := s.newReport(models.ActionSort, kind)
	if err != nil {
		return models.RunReport{}, err
	}

	err = s.run(ctx, kinds, &report)
	return s.complete(ctx, report, err)
}

// Cleanup removes the account's playlists named after the buckets of kind.
// Removal failures of single playlists are reported and skipped.
func (s *Service) Cleanup(ctx context.Context, kind models.ClassificationKind) (models.RunReport, error) {
	kinds, err := expandKind(kind)
	if err != nil {
		return models.RunReport{}, err
	}

	report, err := s.newReport(models.ActionCleanup, kind)
	if err != nil {
		return models.RunReport{}, err
	}

	err = s.cleanup(ctx, kinds, &report)
	return s.complete(ctx, report, err)
}

// ListPlaylists returns the account's playlists that hold buckets of kind.
func (s *Service) ListPlaylists(ctx context.Context, kind models.ClassificationKind) ([]models.Playlist, error) {
	kinds, err := expandKind(kind)
	if err != nil {
		return nil, err
	}
	return s.reconciler.ManagedPlaylists(ctx, s.labels(kinds))
}

func (s *Service) newReport(action models.Action, kind models.ClassificationKind) (models.RunReport, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return models.RunReport{}, err
	}

	report := models.RunReport{
		ID:              id.String(),
		Action:          action,
		Kind:            kind,
		DryRun:          s.opts.DryRun,
		StartedAt:       s.now().Unix(),
		Classified:      make(map[string]int),
		Buckets:         make([]models.BucketReport, 0),
		PartialFailures: make([]string, 0),
	}

	s.log.Info("Starting run",
		zap.String("run_id", report.ID),
		zap.String("action", string(action)),
		zap.String("kind", string(kind)),
		zap.Bool("dry_run", s.opts.DryRun))

	return report, nil
}

func (s *Service) complete(ctx context.Context, report models.RunReport, err error) (models.RunReport, error) {
	if err != nil {
		report.Error = err.Error()
		s.log.Error("Run aborted", zap.String("run_id", report.ID), zap.Error(err))
	}

	report.FinishedAt = s.now().Unix()
	s.finish(context.WithoutCancel(ctx), report)

	return report, err
}

func (s *Service) run(ctx context.Context, kinds []models.ClassificationKind, report *models.RunReport) error {
	tracks, err := s.loadTracks(ctx, report)
	if err != nil {
		return err
	}

	for _, kind := range kinds {
		var buckets models.Buckets
		switch kind {
		case models.KindGenre:
			buckets = s.ClassifyByGenre(tracks)
			report.UnmatchedGenres = UnmatchedGenres(tracks, buckets)
		case models.KindLanguage:
			buckets = s.ClassifyByLanguage(tracks)
		}

		for label, count := range buckets.Counts() {
			report.Classified[fmt.Sprintf("%s/%s", kind, label)] = count
		}

		previous, found, err := artifacts.LoadBuckets(ctx, s.artifacts, kind)
		switch {
		case err != nil:
			s.log.Warn("Failed to load previous buckets", zap.String("kind", string(kind)), zap.Error(err))
		case found:
			moved := reassigned(previous, buckets)
			report.Reassigned += moved
			if moved > 0 {
				s.log.Info("Tracks changed bucket since the last run, old playlists keep them",
					zap.String("kind", string(kind)),
					zap.Int("tracks", moved))
			}
		}
		if err := artifacts.SaveBuckets(ctx, s.artifacts, kind, buckets); err != nil {
			s.log.Warn("Failed to save buckets", zap.String("kind", string(kind)), zap.Error(err))
		}

		s.log.Info("Classified tracks", zap.String("kind", string(kind)), zap.Any("buckets", buckets.Counts()))

		results, err := s.reconcileAll(ctx, kind, buckets)
		for _, res := range results {
			report.Buckets = append(report.Buckets, res)
			if res.Failed {
				report.PartialFailures = append(report.PartialFailures, fmt.Sprintf("%s/%s: %s", res.Kind, res.Label, res.Error))
			}
		}
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) loadTracks(ctx context.Context, report *models.RunReport) ([]models.Track, error) {
	if s.opts.Resume {
		tracks, found, err := artifacts.LoadTracks(ctx, s.artifacts)
		switch {
		case err != nil:
			s.log.Warn("Failed to load saved tracks, reading the library", zap.Error(err))
		case found:
			s.log.Info("Resumed from saved tracks", zap.Int("tracks", len(tracks)))
			report.TracksFetched = len(tracks)
			report.UniqueGenres = s.savedUniqueGenres(ctx)
			return tracks, nil
		default:
			s.log.Info("No saved tracks to resume from, reading the library")
		}
	}

	res, err := s.reader.ReadTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("read saved tracks: %w", err)
	}
	report.TracksFetched = len(res.Tracks)
	report.TracksSkipped = res.Skipped
	report.UniqueGenres = len(res.UniqueGenres)

	if err := artifacts.SaveTracks(ctx, s.artifacts, res.Tracks); err != nil {
		s.log.Warn("Failed to save tracks", zap.Error(err))
	}
	if err := artifacts.SaveUniqueGenres(ctx, s.artifacts, res.UniqueGenres); err != nil {
		s.log.Warn("Failed to save unique genres", zap.Error(err))
	}

	return res.Tracks, nil
}

func (s *Service) savedUniqueGenres(ctx context.Context) int {
	genres, found, err := artifacts.LoadUniqueGenres(ctx, s.artifacts)
	if err != nil {
		s.log.Warn("Failed to load saved unique genres", zap.Error(err))
		return 0
	}
	if !found {
		return 0
	}
	return len(genres)
}

// reassigned counts the URIs of current that sat in a different bucket in
// previous. URIs new to the library are not counted.
func reassigned(previous, current models.Buckets) int {
	before := make(map[string]string)
	for label, uris := range previous {
		for _, uri := range uris {
			before[uri] = label
		}
	}

	moved := 0
	for label, uris := range current {
		for _, uri := range uris {
			if old, ok := before[uri]; ok && old != label {
				moved++
			}
		}
	}
	return moved
}

func (s *Service) cleanup(ctx context.Context, kinds []models.ClassificationKind, report *models.RunReport) error {
	playlists, err := s.reconciler.ManagedPlaylists(ctx, s.labels(kinds))
	if err != nil {
		return err
	}

	s.log.Info("Found bucket playlists", zap.Int("playlists", len(playlists)))

	report.Removed = make([]string, 0, len(playlists))
	for _, p := range playlists {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.reconciler.RemovePlaylist(ctx, p)
		switch {
		case err == nil:
			report.Removed = append(report.Removed, p.Name)
		case catalog.IsUnauthorized(err) || ctx.Err() != nil:
			return err
		default:
			s.log.Error("Failed to remove playlist", zap.String("playlist_id", p.ID), zap.Error(err))
			report.PartialFailures = append(report.PartialFailures, err.Error())
		}
	}

	return nil
}

// labels lists every bucket label kinds can produce, catch-alls included.
func (s *Service) labels(kinds []models.ClassificationKind) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	add := func(label string) {
		if _, ok := seen[label]; ok {
			return
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}

	for _, kind := range kinds {
		switch kind {
		case models.KindGenre:
			for _, label := range s.taxonomy.Genres.Order() {
				add(label)
			}
			add(taxonomy.OtherGenre)
		case models.KindLanguage:
			for _, lang := range s.taxonomy.Languages.Entries() {
				add(lang.Label)
			}
			add(s.taxonomy.Languages.Default())
		}
	}
	return out
}

// reconcileAll reconciles the buckets in label order. With more than one
// worker they run concurrently; the workers share the catalog cooldown.
func (s *Service) reconcileAll(ctx context.Context, kind models.ClassificationKind, buckets models.Buckets) ([]models.BucketReport, error) {
	labels := make([]string, 0, len(buckets))
	for label, uris := range buckets {
		if len(uris) > 0 {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)

	results := make([]models.BucketReport, len(labels))
	started := make([]bool, len(labels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for i, label := range labels {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			started[i] = true
			res, err := s.reconciler.Reconcile(gctx, kind, label, buckets[label])
			results[i] = res
			return err
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	out := make([]models.BucketReport, 0, len(labels))
	for i := range labels {
		if started[i] {
			out = append(out, results[i])
		}
	}
	return out, err
}

func (s *Service) finish(ctx context.Context, report models.RunReport) {
	s.log.Info("Run finished",
		zap.String("run_id", report.ID),
		zap.Int("tracks", report.TracksFetched),
		zap.Int("skipped", report.TracksSkipped),
		zap.Int("buckets", len(report.Buckets)),
		zap.Strings("partial_failures", report.PartialFailures))

	if s.reports != nil {
		if err := s.reports.SaveRunReport(ctx, report); err != nil {
			s.log.Warn("Failed to save run report", zap.Error(err))
		}
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyRun(ctx, report); err != nil {
			s.log.Warn("Failed to send run notification", zap.Error(err))
		}
	}
}

func expandKind(kind models.ClassificationKind) ([]models.ClassificationKind, error) {
	switch kind {
	case models.KindGenre, models.KindLanguage:
		return []models.ClassificationKind{kind}, nil
	case models.KindAll:
		return []models.ClassificationKind{models.KindGenre, models.KindLanguage}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}
