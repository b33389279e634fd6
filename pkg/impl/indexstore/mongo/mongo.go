package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/adammck/rangecache/pkg/api"
	"github.com/adammck/rangecache/pkg/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collection = "ranges"
	kId        = "_id"
	kRanges    = "ranges"
)

// IndexStore keeps one document per cache key in Mongo. It's useful when the
// cache directory lives on ephemeral disk but the index should be inspectable
// from elsewhere.
type IndexStore struct {
	db *mongo.Database
}

var _ api.RangeIndexStore = (*IndexStore)(nil)

type document struct {
	Key    string        `bson:"_id"`
	Ranges []types.Range `bson:"ranges"`
}

func New(db *mongo.Database) *IndexStore {
	return &IndexStore{
		db: db,
	}
}

func (s *IndexStore) Init(ctx context.Context) error {
	err := s.db.CreateCollection(ctx, collection)
	if err != nil {
		var cmdErr mongo.CommandError
		if errors.As(err, &cmdErr) && cmdErr.Name == "NamespaceExists" {
			return nil
		}
		return fmt.Errorf("CreateCollection: %w", err)
	}

	return nil
}

func (s *IndexStore) Get(ctx context.Context, key string) (types.RangeSet, error) {
	res := s.db.Collection(collection).FindOne(ctx, bson.M{kId: key})
	if err := res.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.RangeSet{}, nil
		}
		return types.RangeSet{}, fmt.Errorf("FindOne: %w", err)
	}

	var doc document
	if err := res.Decode(&doc); err != nil {
		return types.RangeSet{}, &api.IndexCorrupt{Key: key, Err: err}
	}

	for _, r := range doc.Ranges {
		if !r.Valid() {
			return types.RangeSet{}, &api.IndexCorrupt{
				Key: key,
				Err: fmt.Errorf("%w: %s", api.ErrInvalidRange, r),
			}
		}
	}

	return types.RangeSet{Ranges: doc.Ranges}.Normalize(), nil
}

func (s *IndexStore) Set(ctx context.Context, key string, ranges types.RangeSet) error {
	ranges = ranges.Normalize()

	opts := options.Update().SetUpsert(true)
	_, err := s.db.Collection(collection).UpdateOne(
		ctx,
		bson.M{kId: key},
		bson.M{"$set": bson.M{kRanges: ranges.Ranges}},
		opts,
	)
	if err != nil {
		return fmt.Errorf("UpdateOne: %w", err)
	}

	return nil
}

func (s *IndexStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{kId: key})
	if err != nil {
		return fmt.Errorf("DeleteOne: %w", err)
	}

	return nil
}
