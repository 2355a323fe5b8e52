package mongo

import (
	"github.com/intervju/skriba/internal/pkg/persistence"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// WordStore saves and loads word level timestamps from mongo db
type WordStore struct {
	SessionProvider *SessionProvider
}

// NewWordStore creates WordStore instance
func NewWordStore(sessionProvider *SessionProvider) (*WordStore, error) {
	f := WordStore{SessionProvider: sessionProvider}
	return &f, nil
}

// Save inserts words of one job
func (ss *WordStore) Save(words []persistence.Word) error {
	if len(words) == 0 {
		return nil
	}
	c, ctx, cancel, err := newColl(ss.SessionProvider, wordTable)
	if err != nil {
		return err
	}
	defer cancel()

	data := make([]interface{}, len(words))
	for i := range words {
		data[i] = words[i]
	}
	_, err = c.InsertMany(ctx, data)
	return err
}

// List returns job words ordered by their position in the audio
func (ss *WordStore) List(jobID string) ([]persistence.Word, error) {
	c, ctx, cancel, err := newColl(ss.SessionProvider, wordTable)
	if err != nil {
		return nil, err
	}
	defer cancel()

	cursor, err := c.Find(ctx, bson.M{"jobID": sanitize(jobID)},
		options.Find().SetSort(bson.D{{Key: "index", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "can't get words")
	}
	defer cursor.Close(ctx)
	res := make([]persistence.Word, 0)
	if err = cursor.All(ctx, &res); err != nil {
		return nil, errors.Wrap(err, "can't read words")
	}
	return res, nil
}

// SetIncluded marks words as kept or dropped for the edited transcript
func (ss *WordStore) SetIncluded(jobID string, wordIDs []string, included bool) (int64, error) {
	c, ctx, cancel, err := newColl(ss.SessionProvider, wordTable)
	if err != nil {
		return 0, err
	}
	defer cancel()

	res, err := c.UpdateMany(ctx,
		bson.M{"jobID": sanitize(jobID), "ID": bson.M{"$in": wordIDs}},
		bson.M{"$set": bson.M{"included": included}})
	if err != nil {
		return 0, errors.Wrap(err, "can't update words")
	}
	return res.ModifiedCount, nil
}

// ResetIncluded marks all job words as kept
func (ss *WordStore) ResetIncluded(jobID string) error {
	c, ctx, cancel, err := newColl(ss.SessionProvider, wordTable)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = c.UpdateMany(ctx, bson.M{"jobID": sanitize(jobID)},
		bson.M{"$set": bson.M{"included": true}})
	return err
}

// Delete removes all words of a job
func (ss *WordStore) Delete(jobID string) error {
	c, ctx, cancel, err := newColl(ss.SessionProvider, wordTable)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = c.DeleteMany(ctx, bson.M{"jobID": sanitize(jobID)})
	return err
}
