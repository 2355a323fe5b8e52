package mongo

import (
	"context"
	"net/url"
	"regexp"
	"sync"
	"time"

	"github.com/intervju/skriba/internal/pkg/cmdapp"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// IndexData keeps index creation data
type IndexData struct {
	Table  string
	Field  string
	Unique bool
}

func newIndexData(table string, field string, unique bool) IndexData {
	return IndexData{Table: table, Field: field, Unique: unique}
}

// SessionProvider connects and provides sessions for mongo DB
type SessionProvider struct {
	client  *mongo.Client
	URL     string
	indexes []IndexData
	m       sync.Mutex // struct field mutex
}

// NewSessionProvider creates Mongo session provider
func NewSessionProvider(url string) (*SessionProvider, error) {
	if url == "" {
		return nil, errors.New("No Mongo url provided")
	}
	return &SessionProvider{URL: url, indexes: indexData}, nil
}

// Close closes the mongo client
func (sp *SessionProvider) Close() {
	sp.m.Lock()
	defer sp.m.Unlock()
	if sp.client != nil {
		ctx, cancel := mongoContext()
		defer cancel()
		cmdapp.LogIf(sp.client.Disconnect(ctx))
		sp.client = nil
	}
}

// NewSession creates mongo session
func (sp *SessionProvider) NewSession() (mongo.Session, error) {
	client, err := sp.getClient()
	if err != nil {
		return nil, err
	}
	return client.StartSession()
}

// Healthy checks the mongo connection for healthcheck endpoints
func (sp *SessionProvider) Healthy() error {
	client, err := sp.getClient()
	if err != nil {
		return err
	}
	ctx, cancel := mongoContext()
	defer cancel()
	return client.Ping(ctx, readpref.Primary())
}

func (sp *SessionProvider) getClient() (*mongo.Client, error) {
	sp.m.Lock()
	defer sp.m.Unlock()

	if sp.client == nil {
		cmdapp.Log.Info("Dial mongo: " + hidePass(sp.URL))
		ctx, cancel := mongoContext()
		defer cancel()
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(sp.URL))
		if err != nil {
			return nil, errors.Wrap(err, "Can't dial to mongo")
		}
		err = checkIndexes(client, sp.indexes)
		if err != nil {
			return nil, errors.Wrap(err, "Can't create indexes")
		}
		sp.client = client
	}
	return sp.client, nil
}

func checkIndexes(client *mongo.Client, indexes []IndexData) error {
	for _, index := range indexes {
		err := checkIndex(client, index)
		if err != nil {
			return errors.Wrap(err, "Can't create index: "+index.Table+":"+index.Field)
		}
	}
	return nil
}

func checkIndex(client *mongo.Client, indexData IndexData) error {
	ctx, cancel := mongoContext()
	defer cancel()
	c := client.Database(store).Collection(indexData.Table)
	keys := bson.D{{Key: indexData.Field, Value: 1}}
	_, err := c.Indexes().CreateOne(ctx,
		mongo.IndexModel{Keys: keys,
			Options: options.Index().SetUnique(indexData.Unique).SetSparse(true)})
	return err
}

func mongoContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func newColl(sp *SessionProvider, table string) (*mongo.Collection, context.Context, context.CancelFunc, error) {
	client, err := sp.getClient()
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := mongoContext()
	return client.Database(store).Collection(table), ctx, cancel, nil
}

var sanitizeRegexp = regexp.MustCompile(`[\$\{\}]`)

// sanitize drops mongo control symbols from user supplied values
func sanitize(s string) string {
	return sanitizeRegexp.ReplaceAllString(s, "")
}

func hidePass(s string) string {
	u, err := url.Parse(s)
	if err != nil {
		cmdapp.Log.Warn("Can't parse mongo url.")
		return ""
	}
	_, ps := u.User.Password()
	if ps {
		u.User = url.UserPassword(u.User.Username(), "----")
	}
	return u.String()
}
