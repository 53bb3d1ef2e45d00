package store

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/olekros/zvistka/internal/models"
)

const (
	articlesCollection = "articles"
	productsCollection = "products"
)

// MongoStore is the document-store backed Store. The unique index on
// article_url enforces one record per article at the database level.
type MongoStore struct {
	client   *mongo.Client
	articles *mongo.Collection
	products *mongo.Collection
}

// NewMongoStore connects, pings and ensures the indexes the contract relies on.
func NewMongoStore(ctx context.Context, url, database string, timeout time.Duration) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().
		ApplyURI(url).
		SetServerSelectionTimeout(timeout))
	if err != nil {
		return nil, &StoreError{Op: "connect", Err: err}
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, &StoreError{Op: "ping", Err: err}
	}

	db := client.Database(database)
	s := &MongoStore{
		client:   client,
		articles: db.Collection(articlesCollection),
		products: db.Collection(productsCollection),
	}
	if err := s.ensureIndexes(connectCtx); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := m.articles.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "article_url", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "fetched_at", Value: -1}}},
		{Keys: bson.D{{Key: "source_url", Value: 1}, {Key: "fetched_at", Value: -1}}},
	})
	if err != nil {
		return &StoreError{Op: "create article indexes", Err: err}
	}
	_, err = m.products.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "url", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return &StoreError{Op: "create product index", Err: err}
	}
	return nil
}

// Upsert inserts or replaces by article_url. The fetched_at guard plus the
// unique index give last-writer-wins under concurrent refreshes of the same
// URL: an older writer racing a newer one hits the duplicate key and becomes
// a no-op.
func (m *MongoStore) Upsert(ctx context.Context, article models.Article) error {
	filter := bson.M{
		"article_url": article.ArticleURL,
		"fetched_at":  bson.M{"$lte": article.FetchedAt},
	}
	_, err := m.articles.ReplaceOne(ctx, filter, article, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return &StoreError{Op: "upsert article", Err: err}
	}
	return nil
}

func (m *MongoStore) Recent(ctx context.Context, since time.Duration, source string, limit int) ([]models.Article, error) {
	filter := bson.M{
		"fetched_at": bson.M{"$gte": time.Now().UTC().Add(-since)},
	}
	if source != "" {
		filter["source_url"] = source
	}

	opts := options.Find().SetSort(bson.D{{Key: "fetched_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := m.articles.Find(ctx, filter, opts)
	if err != nil {
		return nil, &StoreError{Op: "recent", Err: err}
	}
	var articles []models.Article
	if err := cursor.All(ctx, &articles); err != nil {
		return nil, &StoreError{Op: "recent decode", Err: err}
	}
	return articles, nil
}

func (m *MongoStore) Search(ctx context.Context, query, source string, limit int) ([]models.Article, error) {
	pattern := regexp.QuoteMeta(query)
	filter := bson.M{
		"$or": bson.A{
			bson.M{"title": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"body_text": bson.M{"$regex": pattern, "$options": "i"}},
		},
	}
	if source != "" {
		filter["source_url"] = source
	}

	// Over-fetch so title hits can be ranked above body-only hits.
	opts := options.Find().SetSort(bson.D{{Key: "fetched_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit * 2))
	}

	cursor, err := m.articles.Find(ctx, filter, opts)
	if err != nil {
		return nil, &StoreError{Op: "search", Err: err}
	}
	var articles []models.Article
	if err := cursor.All(ctx, &articles); err != nil {
		return nil, &StoreError{Op: "search decode", Err: err}
	}
	return rankSearch(articles, strings.ToLower(query), limit), nil
}

func (m *MongoStore) IsStale(ctx context.Context, articleURL string, ttl time.Duration) (bool, error) {
	var record struct {
		FetchedAt time.Time `bson:"fetched_at"`
	}
	err := m.articles.FindOne(ctx,
		bson.M{"article_url": articleURL},
		options.FindOne().SetProjection(bson.M{"fetched_at": 1}),
	).Decode(&record)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return true, nil
		}
		return false, &StoreError{Op: "is_stale", Err: err}
	}
	return time.Since(record.FetchedAt) > ttl, nil
}

// SaveSnapshot replaces the previous offer snapshot for the product URL.
// Offers are never merged across fetches.
func (m *MongoStore) SaveSnapshot(ctx context.Context, snapshot models.OfferSnapshot) error {
	_, err := m.products.ReplaceOne(ctx,
		bson.M{"url": snapshot.ProductURL},
		snapshot,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return &StoreError{Op: "save snapshot", Err: err}
	}
	return nil
}

func (m *MongoStore) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
