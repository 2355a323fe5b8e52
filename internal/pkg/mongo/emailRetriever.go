package mongo

import (
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// EmailRetriever returns the notification email of a job
type EmailRetriever struct {
	SessionProvider *SessionProvider
}

// NewEmailRetriever creates EmailRetriever instance
func NewEmailRetriever(sessionProvider *SessionProvider) (*EmailRetriever, error) {
	f := EmailRetriever{SessionProvider: sessionProvider}
	return &f, nil
}

// Get returns the email for the job ID
func (ss *EmailRetriever) Get(id string) (string, error) {
	c, ctx, cancel, err := newColl(ss.SessionProvider, jobTable)
	if err != nil {
		return "", err
	}
	defer cancel()

	var res struct {
		NotifyEmail string `bson:"notifyEmail"`
	}
	err = c.FindOne(ctx, bson.M{"ID": sanitize(id)}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return "", errors.New("no job by ID " + id)
	}
	if err != nil {
		return "", errors.Wrap(err, "can't get job")
	}
	if res.NotifyEmail == "" {
		return "", errors.New("no email for job " + id)
	}
	return res.NotifyEmail, nil
}
