package loader

import (
	"io"
	"os"
	"path/filepath"

	"github.com/intervju/skriba/internal/pkg/cmdapp"
	"github.com/pkg/errors"
)

// File is a read only file abstraction
type File interface {
	io.Reader
	io.Seeker
	io.Closer
	Stat() (os.FileInfo, error)
}

// OpenFileFunc declares function to open file by name and return Reader
type OpenFileFunc func(fileName string) (File, error)

// LocalFileLoader loads file from local disk
type LocalFileLoader struct {
	// Path is the main storage folder
	Path         string
	OpenFileFunc OpenFileFunc
}

// NewLocalFileLoader creates LocalFileLoader instance
func NewLocalFileLoader(path string) (*LocalFileLoader, error) {
	cmdapp.Log.Infof("Init Local File Loader at: %s", path)
	if path == "" {
		return nil, errors.New("no path provided")
	}
	f := LocalFileLoader{Path: path, OpenFileFunc: openFile}
	return &f, nil
}

// Load loads file from disk
func (fs LocalFileLoader) Load(name string) (File, error) {
	fileName := fs.Resolve(name)
	f, err := fs.OpenFileFunc(fileName)
	if err != nil {
		return nil, errors.Wrap(err, "can not open file "+fileName)
	}
	return f, nil
}

// Resolve maps a stored file name to its full path
func (fs LocalFileLoader) Resolve(name string) string {
	return filepath.Join(fs.Path, name)
}

// Delete removes the stored file. Missing file is not an error
func (fs LocalFileLoader) Delete(name string) error {
	fileName := fs.Resolve(name)
	err := os.Remove(fileName)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "can not delete file "+fileName)
	}
	return nil
}

func openFile(fileName string) (File, error) {
	return os.Open(fileName)
}
