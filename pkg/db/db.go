package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/models"
	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/taxonomy"
)

type Database interface {
	GetAllGenreMappings(ctx context.Context) ([]models.GenreMapping, error)
	GetAllLanguageMappings(ctx context.Context) ([]models.LanguageMapping, error)

	// taxonomy.Source
	GenreTable(ctx context.Context) (map[string][]string, bool, error)
	LanguageTable(ctx context.Context) (taxonomy.LanguageTable, bool, error)

	// artifacts.Store
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, bool, error)

	SaveRunReport(ctx context.Context, report models.RunReport) error

	Close(ctx context.Context) error
	Ping(ctx context.Context) error
}

type db struct {
	conn   *mongo.Client
	log    *zap.Logger
	dbname string
	url    string
}

type artifact struct {
	Key       string `bson:"_id"`
	Value     []byte `bson:"value"`
	UpdatedAt int64  `bson:"updated_at"`
}

func NewDatabase(ctx context.Context, log *zap.Logger, url, dbname string) (Database, error) {
	conn, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, err
	}

	return &db{
		conn:   conn,
		log:    log,
		dbname: dbname,
		url:    url,
	}, nil
}

func (d *db) reconnectToDB() error {
	if err := d.conn.Disconnect(context.Background()); err != nil {
		d.log.Warn("error disconnecting from database", zap.Error(err))
	}

	conn, err := mongo.Connect(context.Background(), options.Client().ApplyURI(d.url))
	if err != nil {
		return err
	}

	d.conn = conn
	return nil
}

func (d *db) collection(name string) *mongo.Collection {
	if err := d.conn.Ping(context.Background(), nil); err != nil {
		d.log.Error("failed to ping database. reconnecting.", zap.Error(err))
		if reconnectErr := d.reconnectToDB(); reconnectErr != nil {
			d.log.Error("failed to reconnect to database", zap.Error(reconnectErr))
		}
	}
	return d.conn.Database(d.dbname).Collection(name)
}

func (d *db) genreMappingsCollection() *mongo.Collection {
	return d.collection("genre_mappings")
}

func (d *db) languageMappingsCollection() *mongo.Collection {
	return d.collection("language_mappings")
}

func (d *db) artifactsCollection() *mongo.Collection {
	return d.collection("artifacts")
}

func (d *db) runReportsCollection() *mongo.Collection {
	return d.collection("run_reports")
}

func (d *db) GetAllGenreMappings(ctx context.Context) ([]models.GenreMapping, error) {
	cur, err := d.genreMappingsCollection().Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	mappings := make([]models.GenreMapping, 0)
	for cur.Next(ctx) {
		var mapping models.GenreMapping
		if err := cur.Decode(&mapping); err != nil {
			d.log.Error("failed to decode genre mapping", zap.Error(err))
			continue
		}
		mappings = append(mappings, mapping)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	return mappings, nil
}

func (d *db) GetAllLanguageMappings(ctx context.Context) ([]models.LanguageMapping, error) {
	cur, err := d.languageMappingsCollection().Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"position": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	mappings := make([]models.LanguageMapping, 0)
	for cur.Next(ctx) {
		var mapping models.LanguageMapping
		if err := cur.Decode(&mapping); err != nil {
			d.log.Error("failed to decode language mapping", zap.Error(err))
			continue
		}
		mappings = append(mappings, mapping)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	return mappings, nil
}

func (d *db) GenreTable(ctx context.Context) (map[string][]string, bool, error) {
	mappings, err := d.GetAllGenreMappings(ctx)
	if err != nil {
		return nil, true, fmt.Errorf("get genre mappings: %w", err)
	}
	if len(mappings) == 0 {
		return nil, false, nil
	}
	return GenreTableFromMappings(mappings), true, nil
}

func (d *db) LanguageTable(ctx context.Context) (taxonomy.LanguageTable, bool, error) {
	mappings, err := d.GetAllLanguageMappings(ctx)
	if err != nil {
		return taxonomy.LanguageTable{}, true, fmt.Errorf("get language mappings: %w", err)
	}
	if len(mappings) == 0 {
		return taxonomy.LanguageTable{}, false, nil
	}
	return LanguageTableFromMappings(mappings), true, nil
}

// GenreTableFromMappings groups specific genres under their broad label.
func GenreTableFromMappings(mappings []models.GenreMapping) map[string][]string {
	table := make(map[string][]string)
	for _, m := range mappings {
		label := strings.TrimSpace(m.SimplifiedGenre)
		tag := strings.TrimSpace(m.SpecificGenre)
		if label == "" || tag == "" {
			continue
		}
		table[label] = append(table[label], tag)
	}
	return table
}

// LanguageTableFromMappings orders the rows by position. The row flagged as
// default only names the catch-all label.
func LanguageTableFromMappings(mappings []models.LanguageMapping) taxonomy.LanguageTable {
	rows := append([]models.LanguageMapping(nil), mappings...)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Position < rows[j].Position
	})

	table := taxonomy.LanguageTable{}
	for _, m := range rows {
		if m.Default {
			table.Default = m.Label
			continue
		}
		table.Languages = append(table.Languages, taxonomy.LanguageEntry{
			Label:    m.Label,
			Genres:   m.Genres,
			Artists:  m.Artists,
			Keywords: m.Keywords,
		})
	}
	return table
}

func (d *db) Put(ctx context.Context, key string, value []byte) error {
	doc := artifact{Key: key, Value: value, UpdatedAt: time.Now().Unix()}
	_, err := d.artifactsCollection().ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	return err
}

func (d *db) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var doc artifact
	err := d.artifactsCollection().FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	return doc.Value, true, nil
}

func (d *db) SaveRunReport(ctx context.Context, report models.RunReport) error {
	_, err := d.runReportsCollection().InsertOne(ctx, report)
	return err
}

func (d *db) Close(ctx context.Context) error {
	return d.conn.Disconnect(ctx)
}

func (d *db) Ping(ctx context.Context) error {
	return d.conn.Ping(ctx, nil)
}
