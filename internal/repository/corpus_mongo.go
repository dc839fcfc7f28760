package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"connect6_datagen/internal/domain/corpus"
	errs "connect6_datagen/internal/errors"
)

const insertBatch = 1000

type corpusDoc struct {
	corpus.Header `bson:",inline"`
	Count         int64 `bson:"count"`
	Complete      bool  `bson:"complete"`
}

type exampleDoc struct {
	RunID   string      `bson:"run_id"`
	Seq     int64       `bson:"seq"`
	Example fileExample `bson:",inline"`
}

// MongoCorpusStore keeps corpora in two collections: one header document per
// run in "corpora" and the examples in "examples", ordered by seq.
type MongoCorpusStore struct {
	log   *zap.SugaredLogger
	mongo *mongo.Database
}

func NewMongoCorpusStore(log *zap.SugaredLogger, mongo *mongo.Database) *MongoCorpusStore {
	return &MongoCorpusStore{log: log, mongo: mongo}
}

func (m *MongoCorpusStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := m.mongo.Collection("corpora").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "run_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = m.mongo.Collection("examples").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "run_id", Value: 1}, {Key: "seq", Value: 1}},
	})
	return err
}

// writeCollection is the part of *mongo.Collection that Save writes through.
type writeCollection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

// Save inserts the examples first and flips the header to complete last, so
// readers never see a partially written corpus as complete. A failed save is
// rolled back so the run id can be written again.
func (m *MongoCorpusStore) Save(ctx context.Context, c corpus.Corpus) error {
	return m.save(ctx, m.mongo.Collection("corpora"), m.mongo.Collection("examples"), c)
}

func (m *MongoCorpusStore) save(ctx context.Context, corpora, examples writeCollection, c corpus.Corpus) error {
	header := c.Header
	header.SchemaVersion = corpus.SchemaVersion

	_, err := corpora.InsertOne(ctx, corpusDoc{Header: header, Count: int64(len(c.Examples))})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("run %s: %w", header.RunID, errs.ErrCorpusExists)
		}
		return fmt.Errorf("insert corpus header: %w", err)
	}

	if err := m.insertExamples(ctx, examples, header.RunID, c.Examples); err != nil {
		m.rollback(corpora, examples, header.RunID)
		return err
	}

	_, err = corpora.UpdateOne(ctx,
		bson.M{"run_id": header.RunID},
		bson.M{"$set": bson.M{"complete": true}},
	)
	if err != nil {
		m.rollback(corpora, examples, header.RunID)
		return fmt.Errorf("mark corpus complete: %w", err)
	}
	m.log.Infof("corpus of run %s stored in mongo (%d examples)", header.RunID, len(c.Examples))
	return nil
}

func (m *MongoCorpusStore) insertExamples(ctx context.Context, examples writeCollection, runID string, all []corpus.TrainingExample) error {
	batch := make([]interface{}, 0, insertBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		_, err := examples.InsertMany(ctx, batch, options.InsertMany().SetOrdered(false))
		batch = batch[:0]
		return err
	}
	for i, ex := range all {
		batch = append(batch, exampleDoc{RunID: runID, Seq: int64(i), Example: encodeExample(ex)})
		if len(batch) == insertBatch {
			if err := flush(); err != nil {
				return fmt.Errorf("insert examples of run %s: %w", runID, err)
			}
		}
	}
	if err := flush(); err != nil {
		return fmt.Errorf("insert examples of run %s: %w", runID, err)
	}
	return nil
}

// rollback removes a partially written corpus. It runs on its own context
// because the save context may already be cancelled.
func (m *MongoCorpusStore) rollback(corpora, examples writeCollection, runID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := examples.DeleteMany(ctx, bson.M{"run_id": runID}); err != nil {
		m.log.Errorf("rollback examples of run %s: %v", runID, err)
	}
	if _, err := corpora.DeleteOne(ctx, bson.M{"run_id": runID}); err != nil {
		m.log.Errorf("rollback corpus header of run %s: %v", runID, err)
	}
}

func (m *MongoCorpusStore) Exists(ctx context.Context, runID string) (bool, error) {
	err := m.mongo.Collection("corpora").FindOne(ctx, bson.M{"run_id": runID, "complete": true}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return err == nil, err
}

func (m *MongoCorpusStore) Load(ctx context.Context, runID string) (corpus.Corpus, error) {
	var head corpusDoc
	err := m.mongo.Collection("corpora").FindOne(ctx, bson.M{"run_id": runID}).Decode(&head)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return corpus.Corpus{}, fmt.Errorf("corpus of run %s: %w", runID, errs.ErrRunNotFound)
	}
	if err != nil {
		return corpus.Corpus{}, err
	}
	if head.SchemaVersion != corpus.SchemaVersion {
		return corpus.Corpus{}, fmt.Errorf("schema version %d: %w", head.SchemaVersion, errs.ErrUnsupportedSchema)
	}
	if !head.Complete {
		return corpus.Corpus{}, fmt.Errorf("run %s: %w", runID, errs.ErrIncompleteCorpus)
	}

	cursor, err := m.mongo.Collection("examples").Find(ctx,
		bson.M{"run_id": runID},
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}),
	)
	if err != nil {
		return corpus.Corpus{}, err
	}
	defer cursor.Close(ctx)

	c := corpus.Corpus{Header: head.Header, Examples: make([]corpus.TrainingExample, 0, head.Count)}
	for cursor.Next(ctx) {
		var doc exampleDoc
		if err := cursor.Decode(&doc); err != nil {
			return corpus.Corpus{}, err
		}
		ex, err := decodeExample(head.BoardSize, doc.Example)
		if err != nil {
			return corpus.Corpus{}, fmt.Errorf("example %d of run %s: %w", doc.Seq, runID, err)
		}
		c.Examples = append(c.Examples, ex)
	}
	if err := cursor.Err(); err != nil {
		return corpus.Corpus{}, err
	}
	if int64(len(c.Examples)) != head.Count {
		return corpus.Corpus{}, fmt.Errorf("run %s lists %d examples, found %d: %w",
			runID, head.Count, len(c.Examples), errs.ErrIncompleteCorpus)
	}
	return c, nil
}
