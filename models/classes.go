// Package models - Class label tables for detection models.
package models

import (
	"bufio"
	"bytes"
	_ "embed"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// UnknownClassName is reported for class ids outside the label table.
const UnknownClassName = "Unknown"

//go:embed coco_classes.txt
var cocoClassesTxt []byte

// OutputClass represents one detection label.
type OutputClass struct {
	// The integer index returned by the model.
	Index int `json:"index"`
	// The human-readable label.
	Name string `json:"name"`
}

// ClassLoader produces the ordered list of class names for a model.
type ClassLoader func() ([]string, error)

// COCOClassLoader loads the 80 COCO labels bundled with the module.
func COCOClassLoader() ClassLoader {
	return func() ([]string, error) {
		return LoadClassNames(bytes.NewReader(cocoClassesTxt))
	}
}

// FileClassLoader loads labels from a text file with one label per line.
func FileClassLoader(path string) ClassLoader {
	return func() ([]string, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "open labels file %s", path)
		}
		defer f.Close()

		return LoadClassNames(f)
	}
}

// LoadClassNames reads one class name per line. Surrounding whitespace is
// trimmed. A blank line keeps its class id and reads as UnknownClassName so
// later labels stay aligned. Trailing blank lines are dropped.
//
// Arguments:
//   - r: The label source.
//
// Returns:
//   - []string: Class names indexed by class id.
//   - error: An error if r could not be read.
func LoadClassNames(r io.Reader) ([]string, error) {
	var names []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		names = append(names, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read class names")
	}

	for len(names) > 0 && names[len(names)-1] == "" {
		names = names[:len(names)-1]
	}
	for i, name := range names {
		if name == "" {
			names[i] = UnknownClassName
		}
	}

	return names, nil
}

// Resolver maps class ids to human-readable names.
//
// The table is loaded on first use and is read-only afterwards, so a Resolver is
// safe for concurrent use. A failed load is logged once and leaves the table
// empty, in which case every id resolves to UnknownClassName.
type Resolver struct {
	load   ClassLoader
	logger logrus.FieldLogger

	once    sync.Once
	classes []OutputClass
}

// NewResolver creates a resolver backed by load. A nil loader uses the bundled
// COCO labels; a nil logger uses the standard logger.
func NewResolver(load ClassLoader, logger logrus.FieldLogger) *Resolver {
	if load == nil {
		load = COCOClassLoader()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Resolver{load: load, logger: logger}
}

func (r *Resolver) init() {
	r.once.Do(func() {
		names, err := r.load()
		if err != nil {
			r.logger.WithError(err).Error("failed to load class names")
			return
		}

		r.classes = make([]OutputClass, len(names))
		for i, name := range names {
			r.classes[i] = OutputClass{Index: i, Name: name}
		}
	})
}

// NameOf returns the label for id, or UnknownClassName when id is out of range.
func (r *Resolver) NameOf(id int) string {
	r.init()
	if id < 0 || id >= len(r.classes) {
		return UnknownClassName
	}
	return r.classes[id].Name
}

// Classes returns a copy of the loaded label table.
func (r *Resolver) Classes() []OutputClass {
	r.init()
	out := make([]OutputClass, len(r.classes))
	copy(out, r.classes)
	return out
}

// Len returns the number of loaded labels.
func (r *Resolver) Len() int {
	r.init()
	return len(r.classes)
}
