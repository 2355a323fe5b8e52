package mongo

import (
	"github.com/intervju/skriba/internal/pkg/persistence"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SegmentStore saves and loads transcript segments from mongo db
type SegmentStore struct {
	SessionProvider *SessionProvider
}

// NewSegmentStore creates SegmentStore instance
func NewSegmentStore(sessionProvider *SessionProvider) (*SegmentStore, error) {
	f := SegmentStore{SessionProvider: sessionProvider}
	return &f, nil
}

// Save inserts segments of one job
func (ss *SegmentStore) Save(segments []persistence.Segment) error {
	if len(segments) == 0 {
		return nil
	}
	c, ctx, cancel, err := newColl(ss.SessionProvider, segmentTable)
	if err != nil {
		return err
	}
	defer cancel()

	data := make([]interface{}, len(segments))
	for i := range segments {
		data[i] = segments[i]
	}
	_, err = c.InsertMany(ctx, data)
	return err
}

// List returns job segments ordered by their position in the audio
func (ss *SegmentStore) List(jobID string) ([]persistence.Segment, error) {
	c, ctx, cancel, err := newColl(ss.SessionProvider, segmentTable)
	if err != nil {
		return nil, err
	}
	defer cancel()

	cursor, err := c.Find(ctx, bson.M{"jobID": sanitize(jobID)},
		options.Find().SetSort(bson.D{{Key: "index", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "can't get segments")
	}
	defer cursor.Close(ctx)
	res := make([]persistence.Segment, 0)
	if err = cursor.All(ctx, &res); err != nil {
		return nil, errors.Wrap(err, "can't read segments")
	}
	return res, nil
}

// Update sets fields of one segment
func (ss *SegmentStore) Update(jobID, segmentID string, fields bson.M) error {
	c, ctx, cancel, err := newColl(ss.SessionProvider, segmentTable)
	if err != nil {
		return err
	}
	defer cancel()

	res, err := c.UpdateOne(ctx,
		bson.M{"jobID": sanitize(jobID), "ID": sanitize(segmentID)},
		bson.M{"$set": fields})
	if err != nil {
		return errors.Wrap(err, "can't update segment")
	}
	if res.MatchedCount == 0 {
		return errors.New("no segment " + segmentID)
	}
	return nil
}

// Delete removes all segments of a job
func (ss *SegmentStore) Delete(jobID string) error {
	c, ctx, cancel, err := newColl(ss.SessionProvider, segmentTable)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = c.DeleteMany(ctx, bson.M{"jobID": sanitize(jobID)})
	return err
}
