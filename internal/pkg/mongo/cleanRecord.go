package mongo

import (
	"github.com/intervju/skriba/internal/pkg/cmdapp"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
)

// CleanRecord deletes mongo table records of one job
type CleanRecord struct {
	SessionProvider *SessionProvider
	Table           string
	idField         string
}

// NewCleanRecords creates CleanRecord instances for all job related tables
func NewCleanRecords(sessionProvider *SessionProvider) ([]*CleanRecord, error) {
	result := make([]*CleanRecord, 0)
	result = append(result, newCleanRecord(sessionProvider, jobTable, "ID"))
	result = append(result, newCleanRecord(sessionProvider, segmentTable, "jobID"))
	result = append(result, newCleanRecord(sessionProvider, wordTable, "jobID"))
	result = append(result, newCleanRecord(sessionProvider, emailTable, "ID"))
	return result, nil
}

func newCleanRecord(sessionProvider *SessionProvider, table string, idField string) *CleanRecord {
	f := CleanRecord{SessionProvider: sessionProvider, Table: table, idField: idField}
	cmdapp.Log.Infof("Init Mongo table Clean for %s", table)
	return &f
}

// Clean deletes records from table by job ID
func (fs *CleanRecord) Clean(ID string) error {
	cmdapp.Log.Infof("Cleaning records for %s[%s=%s]", fs.Table, fs.idField, ID)

	c, ctx, cancel, err := newColl(fs.SessionProvider, fs.Table)
	if err != nil {
		return err
	}
	defer cancel()

	info, err := c.DeleteMany(ctx, bson.M{fs.idField: sanitize(ID)})
	if err != nil {
		return errors.Wrap(err, "can't delete")
	}
	cmdapp.Log.Infof("Deleted %d", info.DeletedCount)
	return nil
}
