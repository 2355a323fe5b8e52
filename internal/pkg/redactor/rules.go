package redactor

import (
	"io/ioutil"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/intervju/skriba/internal/pkg/cmdapp"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// WordRule replaces an exact word
type WordRule struct {
	Text        string `yaml:"text"`
	Replacement string `yaml:"replacement,omitempty"`
}

// PatternRule replaces a regex match
type PatternRule struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement,omitempty"`
}

// Rules keeps custom redaction rules loaded from the rules file
type Rules struct {
	Words               []WordRule    `yaml:"words,omitempty"`
	Patterns            []PatternRule `yaml:"patterns,omitempty"`
	InstitutionSuffixes []string      `yaml:"institutionSuffixes,omitempty"`
}

// LoadRules reads rules from a yaml file
func LoadRules(file string) (*Rules, error) {
	data, err := ioutil.ReadFile(file)
	if err != nil {
		return nil, errors.Wrap(err, "can't read rules file "+file)
	}
	var res Rules
	err = yaml.Unmarshal(data, &res)
	if err != nil {
		return nil, errors.Wrap(err, "can't parse rules file "+file)
	}
	return &res, nil
}

// WatchRules reloads detector rules when the file changes.
// Returns a stop function
func WatchRules(file string, d *PatternDetector) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "can't init rules watcher")
	}
	err = watcher.Add(filepath.Dir(file))
	if err != nil {
		watcher.Close()
		return nil, errors.Wrap(err, "can't watch "+file)
	}
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != file {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cmdapp.Log.Infof("Reloading rules from %s", file)
				rules, err := LoadRules(file)
				if err != nil {
					cmdapp.Log.Error(err)
					continue
				}
				d.SetRules(rules)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				cmdapp.Log.Error(err)
			}
		}
	}()
	return func() { watcher.Close() }, nil
}
