package taxonomy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"
)

// Source provides the raw taxonomy tables. A table that does not exist is
// reported with found=false and a nil error; the caller then falls back to
// the built-in default. A non-nil error means the table exists but could not
// be read.
type Source interface {
	GenreTable(ctx context.Context) (table map[string][]string, found bool, err error)
	LanguageTable(ctx context.Context) (table LanguageTable, found bool, err error)
}

// FileSource reads both tables from JSON documents on disk.
type FileSource struct {
	GenresPath    string
	LanguagesPath string
}

func (s FileSource) GenreTable(_ context.Context) (map[string][]string, bool, error) {
	table := make(map[string][]string)
	found, err := readJSON(s.GenresPath, &table)
	if err != nil || !found {
		return nil, found, err
	}
	return table, true, nil
}

func (s FileSource) LanguageTable(_ context.Context) (LanguageTable, bool, error) {
	var table LanguageTable
	found, err := readJSON(s.LanguagesPath, &table)
	if err != nil || !found {
		return LanguageTable{}, found, err
	}
	return table, true, nil
}

func readJSON(path string, v interface{}) (bool, error) {
	if path == "" {
		return false, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

// Load reads both tables from src, substituting the built-in defaults for
// any table that is missing, unreadable or empty. It never fails: a bad
// taxonomy degrades classification, it does not stop a run.
// defaultLanguage overrides the catch-all label from the table when set.
func Load(ctx context.Context, src Source, defaultLanguage string, log *zap.Logger) Taxonomy {
	genreTable, found, err := src.GenreTable(ctx)
	switch {
	case err != nil:
		log.Warn("failed to load genre taxonomy, using built-in default", zap.Error(err))
		genreTable = DefaultGenreTable()
	case !found || len(genreTable) == 0:
		log.Warn("genre taxonomy not found, using built-in default")
		genreTable = DefaultGenreTable()
	}

	languageTable, found, err := src.LanguageTable(ctx)
	switch {
	case err != nil:
		log.Warn("failed to load language taxonomy, using built-in default", zap.Error(err))
		languageTable = DefaultLanguageTable()
	case !found || len(languageTable.Languages) == 0:
		log.Warn("language taxonomy not found, using built-in default")
		languageTable = DefaultLanguageTable()
	}

	t := Taxonomy{
		Genres:    NewGenres(genreTable),
		Languages: NewLanguages(languageTable, defaultLanguage),
	}

	log.Info("Loaded taxonomy",
		zap.Int("genres", t.Genres.Len()),
		zap.Int("languages", len(t.Languages.Entries())),
		zap.String("default_language", t.Languages.Default()))

	return t
}
