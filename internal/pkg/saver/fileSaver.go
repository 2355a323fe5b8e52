package saver

import (
	"io"
	"os"
	"path/filepath"

	"github.com/intervju/skriba/internal/pkg/cmdapp"
	"github.com/pkg/errors"
)

// WriterCloser keeps Writer interface and close function
type WriterCloser interface {
	io.Writer
	Close() error
}

// OpenFileFunc declares function to open file by name and return Writer
type OpenFileFunc func(fileName string) (WriterCloser, error)

// LocalFileSaver saves file on local disk
type LocalFileSaver struct {
	// StoragePath is the main folder to save into
	StoragePath  string
	OpenFileFunc OpenFileFunc
}

// NewLocalFileSaver creates LocalFileSaver instance
func NewLocalFileSaver(storagePath string) (*LocalFileSaver, error) {
	if storagePath == "" {
		return nil, errors.New("no storage path provided")
	}
	cmdapp.Log.Infof("Init Local File Storage at: %s", storagePath)
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return nil, errors.Wrap(err, "can't init storage dir "+storagePath)
	}
	f := LocalFileSaver{StoragePath: storagePath, OpenFileFunc: openFile}
	return &f, nil
}

// Save saves file to disk
func (fs LocalFileSaver) Save(name string, reader io.Reader) error {
	fileName := filepath.Join(fs.StoragePath, name)
	f, err := fs.OpenFileFunc(fileName)
	if err != nil {
		return errors.Wrap(err, "can not create file "+fileName)
	}
	defer f.Close()
	savedBytes, err := io.Copy(f, reader)
	if err != nil {
		return errors.Wrap(err, "can not save file "+fileName)
	}
	cmdapp.Log.Infof("Saved file %s. Size = %d b", fileName, savedBytes)
	return nil
}

func openFile(fileName string) (WriterCloser, error) {
	return os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
}
