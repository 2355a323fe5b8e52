package mongo

import (
	"github.com/intervju/skriba/internal/pkg/cmdapp"
	"github.com/intervju/skriba/internal/pkg/persistence"
	"github.com/intervju/skriba/internal/pkg/status"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// JobStore saves and loads job records from mongo db
type JobStore struct {
	SessionProvider *SessionProvider
}

// NewJobStore creates JobStore instance
func NewJobStore(sessionProvider *SessionProvider) (*JobStore, error) {
	f := JobStore{SessionProvider: sessionProvider}
	return &f, nil
}

// Create inserts a new job record
func (ss *JobStore) Create(job *persistence.Job) error {
	cmdapp.Log.Infof("Saving job %s", job.ID)

	c, ctx, cancel, err := newColl(ss.SessionProvider, jobTable)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = c.InsertOne(ctx, job)
	return err
}

// Get retrieves a job by ID. Returns nil when there is no such job
func (ss *JobStore) Get(id string) (*persistence.Job, error) {
	c, ctx, cancel, err := newColl(ss.SessionProvider, jobTable)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var res persistence.Job
	err = c.FindOne(ctx, bson.M{"ID": sanitize(id)}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "can't get job")
	}
	return &res, nil
}

// List returns all jobs, newest first
func (ss *JobStore) List() ([]persistence.Job, error) {
	c, ctx, cancel, err := newColl(ss.SessionProvider, jobTable)
	if err != nil {
		return nil, err
	}
	defer cancel()

	cursor, err := c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, errors.Wrap(err, "can't get jobs")
	}
	defer cursor.Close(ctx)
	res := make([]persistence.Job, 0)
	if err = cursor.All(ctx, &res); err != nil {
		return nil, errors.Wrap(err, "can't read jobs")
	}
	return res, nil
}

// ChangeStatus moves the job from one status to another in a single
// conditional write. Returns false when the job was not in the expected
// status, so a looser cannot overwrite a terminal record
func (ss *JobStore) ChangeStatus(id string, from, to status.Status, fields bson.M) (bool, error) {
	cmdapp.Log.Infof("Changing job %s status %s -> %s", id, status.Name(from), status.Name(to))

	c, ctx, cancel, err := newColl(ss.SessionProvider, jobTable)
	if err != nil {
		return false, err
	}
	defer cancel()

	set := bson.M{persistence.FldStatus: status.Name(to)}
	for k, v := range fields {
		set[k] = v
	}
	err = c.FindOneAndUpdate(ctx,
		bson.M{"ID": sanitize(id), persistence.FldStatus: status.Name(from)},
		bson.M{"$set": set}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "can't update job")
	}
	return true, nil
}

// UpdateProgress persists job progress. $max keeps the stored value
// from going backwards when updates race
func (ss *JobStore) UpdateProgress(id string, progress int32, step string) error {
	c, ctx, cancel, err := newColl(ss.SessionProvider, jobTable)
	if err != nil {
		return err
	}
	defer cancel()

	err = c.FindOneAndUpdate(ctx,
		bson.M{"ID": sanitize(id), persistence.FldStatus: status.Name(status.Processing)},
		bson.M{"$max": bson.M{persistence.FldProgress: progress},
			"$set": bson.M{persistence.FldCurrentStep: step}}).Err()
	if err == mongo.ErrNoDocuments {
		// job is no longer processing, drop the update
		return nil
	}
	return err
}

// SetCancelRequested marks the job for cancellation. Returns false when
// the job is already in a terminal status
func (ss *JobStore) SetCancelRequested(id string) (bool, error) {
	c, ctx, cancel, err := newColl(ss.SessionProvider, jobTable)
	if err != nil {
		return false, err
	}
	defer cancel()

	err = c.FindOneAndUpdate(ctx,
		bson.M{"ID": sanitize(id),
			persistence.FldStatus: bson.M{"$in": []string{status.Name(status.Pending), status.Name(status.Processing)}}},
		bson.M{"$set": bson.M{persistence.FldCancelRequested: true}}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "can't update job")
	}
	return true, nil
}

// Update sets arbitrary job fields
func (ss *JobStore) Update(id string, fields bson.M) error {
	c, ctx, cancel, err := newColl(ss.SessionProvider, jobTable)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = c.UpdateOne(ctx, bson.M{"ID": sanitize(id)}, bson.M{"$set": fields})
	return err
}

// Delete removes the job record
func (ss *JobStore) Delete(id string) error {
	cmdapp.Log.Infof("Deleting job %s", id)

	c, ctx, cancel, err := newColl(ss.SessionProvider, jobTable)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = c.DeleteOne(ctx, bson.M{"ID": sanitize(id)})
	return err
}
