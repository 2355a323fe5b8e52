package mongo

import (
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OldIDsProvider returns IDs of finished jobs older than the configured
// expiration
type OldIDsProvider struct {
	SessionProvider *SessionProvider
	expire          time.Duration
}

// NewOldIDsProvider creates OldIDsProvider instance
func NewOldIDsProvider(sessionProvider *SessionProvider, expire time.Duration) (*OldIDsProvider, error) {
	if expire <= 0 {
		return nil, errors.New("no expire duration provided")
	}
	return &OldIDsProvider{SessionProvider: sessionProvider, expire: expire}, nil
}

// Get returns expired job IDs
func (p *OldIDsProvider) Get() ([]string, error) {
	c, ctx, cancel, err := newColl(p.SessionProvider, jobTable)
	if err != nil {
		return nil, err
	}
	defer cancel()

	limit := time.Now().Add(-p.expire)
	cursor, err := c.Find(ctx, bson.M{
		"status":      bson.M{"$in": []string{"completed", "failed", "cancelled"}},
		"completedAt": bson.M{"$lt": limit}},
		options.Find().SetProjection(bson.M{"ID": 1}))
	if err != nil {
		return nil, errors.Wrap(err, "can't get old jobs")
	}
	defer cursor.Close(ctx)

	var records []struct {
		ID string `bson:"ID"`
	}
	if err = cursor.All(ctx, &records); err != nil {
		return nil, errors.Wrap(err, "can't read old jobs")
	}
	res := make([]string, 0, len(records))
	for _, r := range records {
		res = append(res, r.ID)
	}
	return res, nil
}
