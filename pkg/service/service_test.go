package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/artifacts"
	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/catalog"
	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/catalog/catalogtest"
	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/models"
	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/retry/retrytest"
	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/taxonomy"
)

type fakeReports struct {
	mu      sync.Mutex
	reports []models.RunReport
}

func (f *fakeReports) SaveRunReport(_ context.Context, report models.RunReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, report)
	return nil
}

type fakeNotifier struct {
	sent []models.RunReport
	err  error
}

func (f *fakeNotifier) NotifyRun(_ context.Context, report models.RunReport) error {
	f.sent = append(f.sent, report)
	return f.err
}

type stubReader struct {
	calls  int
	result catalog.ReadResult
	err    error
}

func (s *stubReader) ReadTracks(context.Context) (catalog.ReadResult, error) {
	s.calls++
	return s.result, s.err
}

type serviceFixture struct {
	fake     *catalogtest.Catalog
	store    *artifacts.Memory
	reports  *fakeReports
	notifier *fakeNotifier
	svc      *Service
}

func testTaxonomy() taxonomy.Taxonomy {
	return taxonomy.Taxonomy{
		Genres:    taxonomy.NewGenres(taxonomy.DefaultGenreTable()),
		Languages: taxonomy.NewLanguages(taxonomy.DefaultLanguageTable(), ""),
	}
}

func newServiceFixture(t *testing.T, reader TrackReader, opts Options) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		fake:     catalogtest.New(),
		store:    artifacts.NewMemory(),
		reports:  &fakeReports{},
		notifier: &fakeNotifier{},
	}

	caller := newTestCaller(retrytest.NewClock())
	if reader == nil {
		reader = catalog.NewReader(f.fake, caller, zap.NewNop())
	}
	reconciler := NewReconciler(f.fake, caller, catalog.MaxAppendBatch, opts.DryRun, zap.NewNop())

	f.svc = NewService(reader, reconciler, testTaxonomy(), f.store, f.reports, f.notifier, opts, zap.NewNop())
	return f
}

func seedLibrary(fake *catalogtest.Catalog) {
	fake.AddSaved("spotify:track:1", "Dynamite", "BTS")
	fake.AddSaved("spotify:track:2", "So What", "Miles Davis", "jazz", "bebop")
	fake.AddSaved("spotify:track:3", "Creep", "Radiohead", "alternative rock", "art rock")
	fake.AddSaved("spotify:track:4", "Master of Puppets", "Metallica", "metal", "rock")
	fake.AddSaved("spotify:track:5", "Polka Time", "Nobody", "polka")
}

func TestRunGenreReconcilesEveryBucket(t *testing.T) {
	f := newServiceFixture(t, nil, Options{})
	seedLibrary(f.fake)

	report, err := f.svc.Run(context.Background(), models.KindGenre)
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, models.KindGenre, report.Kind)
	assert.Equal(t, 5, report.TracksFetched)
	assert.Equal(t, map[string]int{
		"genre/Jazz":  1,
		"genre/Metal": 1,
		"genre/Rock":  1,
		"genre/Other": 2,
	}, report.Classified)
	assert.Equal(t, map[string]int{"polka": 1}, report.UnmatchedGenres)
	assert.Empty(t, report.PartialFailures)

	labels := make([]string, 0, len(report.Buckets))
	for _, b := range report.Buckets {
		labels = append(labels, b.Label)
		assert.True(t, b.Created)
		assert.Equal(t, b.Target, b.Uploaded)
	}
	assert.Equal(t, []string{"Jazz", "Metal", "Other", "Rock"}, labels)
	assert.ElementsMatch(t, []string{"Jazz Playlist", "Metal Playlist", "Other Playlist", "Rock Playlist"}, f.fake.CreateCalls)

	require.Len(t, f.reports.reports, 1)
	assert.Equal(t, report.ID, f.reports.reports[0].ID)
	require.Len(t, f.notifier.sent, 1)

	tracks, found, err := artifacts.LoadTracks(context.Background(), f.store)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, tracks, 5)

	genres, found, err := artifacts.LoadUniqueGenres(context.Background(), f.store)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"alternative rock", "art rock", "bebop", "jazz", "metal", "polka", "rock"}, genres)

	buckets, found, err := artifacts.LoadBuckets(context.Background(), f.store, models.KindGenre)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"spotify:track:1", "spotify:track:5"}, buckets["Other"])
}

func TestRunTwiceUploadsNothingNew(t *testing.T) {
	f := newServiceFixture(t, nil, Options{})
	seedLibrary(f.fake)

	_, err := f.svc.Run(context.Background(), models.KindAll)
	require.NoError(t, err)
	uploads := len(f.fake.AddCalls)
	creates := len(f.fake.CreateCalls)

	report, err := f.svc.Run(context.Background(), models.KindAll)
	require.NoError(t, err)

	assert.Len(t, f.fake.AddCalls, uploads)
	assert.Len(t, f.fake.CreateCalls, creates)
	for _, b := range report.Buckets {
		assert.Zero(t, b.Uploaded, b.Label)
		assert.False(t, b.Created, b.Label)
	}
}

func TestRunLanguageUsesArtistFallback(t *testing.T) {
	f := newServiceFixture(t, nil, Options{})
	f.fake.AddSaved("spotify:track:1", "Dynamite", "BTS")
	f.fake.AddSaved("spotify:track:2", "Untitled", "Anon")

	report, err := f.svc.Run(context.Background(), models.KindLanguage)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{
		"language/Korean":                       1,
		"language/" + taxonomy.DefaultLanguage: 1,
	}, report.Classified)
	assert.Nil(t, report.UnmatchedGenres)

	_, items, ok := f.fake.PlaylistByName("Korean Playlist")
	require.True(t, ok)
	assert.Equal(t, []string{"spotify:track:1"}, items)
}

func TestRunRecordsPartialFailures(t *testing.T) {
	f := newServiceFixture(t, nil, Options{})
	seedLibrary(f.fake)
	f.fake.CreateErr = func(name string) error {
		if name == "Jazz Playlist" {
			return errors.New("bad request")
		}
		return nil
	}

	report, err := f.svc.Run(context.Background(), models.KindGenre)
	require.NoError(t, err)

	require.Len(t, report.PartialFailures, 1)
	assert.Contains(t, report.PartialFailures[0], "genre/Jazz")
	assert.Len(t, report.Buckets, 4)

	_, _, ok := f.fake.PlaylistByName("Rock Playlist")
	assert.True(t, ok)
}

func TestRunAbortsOnUnauthorized(t *testing.T) {
	reader := &stubReader{err: fmt.Errorf("saved tracks: %w", catalog.ErrUnauthorized)}
	f := newServiceFixture(t, reader, Options{})

	report, err := f.svc.Run(context.Background(), models.KindGenre)
	require.Error(t, err)
	assert.True(t, catalog.IsUnauthorized(err))
	assert.NotEmpty(t, report.Error)

	require.Len(t, f.reports.reports, 1)
	assert.NotEmpty(t, f.reports.reports[0].Error)
	assert.Empty(t, f.fake.CreateCalls)
}

func TestRunAbortsRemainingBucketsOnUnauthorized(t *testing.T) {
	f := newServiceFixture(t, nil, Options{})
	seedLibrary(f.fake)
	f.fake.AddErr = func(int, string, []string) error { return catalog.ErrUnauthorized }

	report, err := f.svc.Run(context.Background(), models.KindAll)
	require.Error(t, err)
	assert.True(t, catalog.IsUnauthorized(err))

	// the first bucket hit the error; nothing after it was started
	assert.Len(t, report.Buckets, 1)
	assert.Equal(t, 1, f.fake.AddAttempts)
}

func TestRunResumesFromSavedTracks(t *testing.T) {
	reader := &stubReader{}
	f := newServiceFixture(t, reader, Options{Resume: true})

	saved := []models.Track{{ID: "1", Name: "So What", Artist: "Miles Davis", Genres: []string{"jazz"}, URI: "spotify:track:1"}}
	require.NoError(t, artifacts.SaveTracks(context.Background(), f.store, saved))

	report, err := f.svc.Run(context.Background(), models.KindGenre)
	require.NoError(t, err)

	assert.Zero(t, reader.calls)
	assert.Equal(t, 1, report.TracksFetched)
	assert.Equal(t, map[string]int{"genre/Jazz": 1}, report.Classified)
}

func TestRunResumeFallsBackToLibrary(t *testing.T) {
	reader := &stubReader{result: catalog.ReadResult{
		Tracks:  []models.Track{{ID: "1", Name: "Creep", Artist: "Radiohead", Genres: []string{"rock"}, URI: "spotify:track:1"}},
		Skipped: 2,
	}}
	f := newServiceFixture(t, reader, Options{Resume: true})

	report, err := f.svc.Run(context.Background(), models.KindGenre)
	require.NoError(t, err)

	assert.Equal(t, 1, reader.calls)
	assert.Equal(t, 2, report.TracksSkipped)
}

func TestRunDryRunMakesNoChanges(t *testing.T) {
	f := newServiceFixture(t, nil, Options{DryRun: true})
	seedLibrary(f.fake)

	report, err := f.svc.Run(context.Background(), models.KindAll)
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Empty(t, f.fake.CreateCalls)
	assert.Zero(t, f.fake.AddAttempts)
	assert.NotEmpty(t, report.Buckets)
	for _, b := range report.Buckets {
		assert.Equal(t, b.Target, b.Delta)
	}
}

func TestRunWithWorkerPool(t *testing.T) {
	f := newServiceFixture(t, nil, Options{Workers: 3})
	for i := 0; i < 40; i++ {
		genre := []string{"jazz", "metal", "rock", "pop", "house"}[i%5]
		f.fake.AddSaved(fmt.Sprintf("spotify:track:%d", i), "song", fmt.Sprintf("artist %d", i), genre)
	}

	report, err := f.svc.Run(context.Background(), models.KindGenre)
	require.NoError(t, err)

	labels := make([]string, 0, len(report.Buckets))
	total := 0
	for _, b := range report.Buckets {
		labels = append(labels, b.Label)
		total += b.Uploaded
	}
	assert.Equal(t, []string{"Electronic", "Jazz", "Metal", "Pop", "Rock"}, labels)
	assert.Equal(t, 40, total)
	assert.Len(t, f.fake.CreateCalls, 5)
}

func TestRunUnknownKind(t *testing.T) {
	f := newServiceFixture(t, &stubReader{}, Options{})

	_, err := f.svc.Run(context.Background(), models.ClassificationKind("mood"))
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.Empty(t, f.reports.reports)
}

func TestRunIgnoresNotifierFailure(t *testing.T) {
	f := newServiceFixture(t, &stubReader{}, Options{})
	f.notifier.err = errors.New("telegram down")

	_, err := f.svc.Run(context.Background(), models.KindGenre)
	require.NoError(t, err)
	assert.Len(t, f.notifier.sent, 1)
}

func TestRunContinuesPastForbiddenBucket(t *testing.T) {
	f := newServiceFixture(t, nil, Options{})
	seedLibrary(f.fake)
	f.fake.AddErr = func(_ int, _ string, uris []string) error {
		if uris[0] == "spotify:track:2" {
			return fmt.Errorf("add tracks to playlist: %w", catalog.ErrForbidden)
		}
		return nil
	}

	report, err := f.svc.Run(context.Background(), models.KindGenre)
	require.NoError(t, err)

	require.Len(t, report.PartialFailures, 1)
	assert.Contains(t, report.PartialFailures[0], "genre/Jazz")
	assert.Len(t, report.Buckets, 4)

	_, items, ok := f.fake.PlaylistByName("Rock Playlist")
	require.True(t, ok)
	assert.Equal(t, []string{"spotify:track:3"}, items)
}

func TestRunSkipsFollowedPlaylistWithSameName(t *testing.T) {
	f := newServiceFixture(t, nil, Options{})
	seedLibrary(f.fake)
	foreign := f.fake.AddFollowedPlaylist("friend", "Jazz Playlist", "spotify:track:99")

	report, err := f.svc.Run(context.Background(), models.KindGenre)
	require.NoError(t, err)

	assert.Empty(t, report.PartialFailures)
	assert.Contains(t, f.fake.CreateCalls, "Jazz Playlist")
	assert.Equal(t, []string{"spotify:track:99"}, f.fake.Items[foreign.ID])
}

func TestRunCountsReassignedTracks(t *testing.T) {
	f := newServiceFixture(t, nil, Options{})
	seedLibrary(f.fake)

	previous := models.Buckets{
		"Rock":  {"spotify:track:2", "spotify:track:3"},
		"Other": {"spotify:track:1"},
	}
	require.NoError(t, artifacts.SaveBuckets(context.Background(), f.store, models.KindGenre, previous))

	report, err := f.svc.Run(context.Background(), models.KindGenre)
	require.NoError(t, err)

	// track 2 moved from Rock to Jazz; 4 and 5 were not classified before
	assert.Equal(t, 1, report.Reassigned)
	assert.Equal(t, 7, report.UniqueGenres)
	assert.Equal(t, models.ActionSort, report.Action)
}

func TestRunResumeRestoresUniqueGenres(t *testing.T) {
	f := newServiceFixture(t, &stubReader{}, Options{Resume: true})

	saved := []models.Track{{ID: "1", Name: "So What", Artist: "Miles Davis", Genres: []string{"jazz", "bebop"}, URI: "spotify:track:1"}}
	require.NoError(t, artifacts.SaveTracks(context.Background(), f.store, saved))
	require.NoError(t, artifacts.SaveUniqueGenres(context.Background(), f.store, []string{"bebop", "jazz"}))

	report, err := f.svc.Run(context.Background(), models.KindGenre)
	require.NoError(t, err)

	assert.Equal(t, 2, report.UniqueGenres)
}

func TestCleanupRemovesBucketPlaylists(t *testing.T) {
	f := newServiceFixture(t, nil, Options{})
	seedLibrary(f.fake)

	_, err := f.svc.Run(context.Background(), models.KindGenre)
	require.NoError(t, err)

	foreign := f.fake.AddFollowedPlaylist("friend", "Rock Playlist")
	mine := f.fake.AddPlaylist("Road Trip")

	report, err := f.svc.Cleanup(context.Background(), models.KindGenre)
	require.NoError(t, err)

	assert.Equal(t, models.ActionCleanup, report.Action)
	assert.ElementsMatch(t, []string{"Jazz Playlist", "Metal Playlist", "Other Playlist", "Rock Playlist"}, report.Removed)
	assert.Empty(t, report.PartialFailures)
	assert.Equal(t, []models.Playlist{foreign, mine}, f.fake.Lists)

	require.Len(t, f.reports.reports, 2)
	assert.Equal(t, models.ActionCleanup, f.reports.reports[1].Action)
	require.Len(t, f.notifier.sent, 2)
}

func TestCleanupContinuesPastFailedRemoval(t *testing.T) {
	f := newServiceFixture(t, &stubReader{}, Options{})
	jazz := f.fake.AddPlaylist("Jazz Playlist")
	f.fake.AddPlaylist("Rock Playlist")
	f.fake.UnfollowErr = func(id string) error {
		if id == jazz.ID {
			return fmt.Errorf("unfollow playlist: %w", catalog.ErrForbidden)
		}
		return nil
	}

	report, err := f.svc.Cleanup(context.Background(), models.KindGenre)
	require.NoError(t, err)

	assert.Equal(t, []string{"Rock Playlist"}, report.Removed)
	require.Len(t, report.PartialFailures, 1)
	assert.Contains(t, report.PartialFailures[0], "Jazz Playlist")
}

func TestCleanupAbortsOnUnauthorized(t *testing.T) {
	f := newServiceFixture(t, &stubReader{}, Options{})
	f.fake.AddPlaylist("Jazz Playlist")
	f.fake.AddPlaylist("Rock Playlist")
	f.fake.UnfollowErr = func(string) error { return catalog.ErrUnauthorized }

	report, err := f.svc.Cleanup(context.Background(), models.KindGenre)
	require.Error(t, err)
	assert.True(t, catalog.IsUnauthorized(err))
	assert.Empty(t, report.Removed)
	assert.Len(t, f.fake.UnfollowCalls, 1)
}

func TestCleanupDryRunKeepsPlaylists(t *testing.T) {
	f := newServiceFixture(t, &stubReader{}, Options{DryRun: true})
	f.fake.AddPlaylist("Korean Playlist")
	f.fake.AddPlaylist("Jazz Playlist")

	report, err := f.svc.Cleanup(context.Background(), models.KindAll)
	require.NoError(t, err)

	assert.Equal(t, []string{"Korean Playlist", "Jazz Playlist"}, report.Removed)
	assert.Empty(t, f.fake.UnfollowCalls)
	assert.Len(t, f.fake.Lists, 2)
}

func TestListPlaylists(t *testing.T) {
	f := newServiceFixture(t, &stubReader{}, Options{})
	korean := f.fake.AddPlaylist("Korean Playlist")
	fallback := f.fake.AddPlaylist(models.PlaylistName(taxonomy.DefaultLanguage))
	f.fake.AddPlaylist("Rock Playlist")
	f.fake.AddFollowedPlaylist("friend", "Japanese Playlist")

	got, err := f.svc.ListPlaylists(context.Background(), models.KindLanguage)
	require.NoError(t, err)
	assert.Equal(t, []models.Playlist{korean, fallback}, got)

	_, err = f.svc.ListPlaylists(context.Background(), models.ClassificationKind("mood"))
	assert.ErrorIs(t, err, ErrUnknownKind)
}
