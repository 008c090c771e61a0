package labels

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
)

// Info is the classification annotation map, file name to class, stored in
// annotation_info.json.
type Info struct {
	path    string
	entries map[string]string
}

// LoadInfo reads the info file at path. A missing or unreadable file is
// treated as empty; an invalid one is logged.
func LoadInfo(path string, log logrus.FieldLogger) *Info {
	info := &Info{path: path, entries: make(map[string]string)}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return info
	}
	if err != nil {
		log.WithField("file", path).Warnf("reading annotation info: %v", err)
		return info
	}
	if err := json.Unmarshal(data, &info.entries); err != nil {
		log.WithField("file", path).Warnf("invalid annotation info, starting empty: %v", err)
		info.entries = make(map[string]string)
	}
	return info
}

// Path returns the backing file path.
func (i *Info) Path() string { return i.path }

// Get returns the class for an image file name.
func (i *Info) Get(file string) (string, bool) {
	c, ok := i.entries[file]
	return c, ok
}

// Set assigns a class to an image file name.
func (i *Info) Set(file, class string) {
	i.entries[file] = class
}

// Delete removes an image entry.
func (i *Info) Delete(file string) {
	delete(i.entries, file)
}

// Clear removes every entry.
func (i *Info) Clear() {
	i.entries = make(map[string]string)
}

// Len returns the number of entries.
func (i *Info) Len() int { return len(i.entries) }

// Keys returns the image file names in sorted order.
func (i *Info) Keys() []string {
	keys := make([]string, 0, len(i.entries))
	for k := range i.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Entries returns a copy of the map.
func (i *Info) Entries() map[string]string {
	out := make(map[string]string, len(i.entries))
	for k, v := range i.entries {
		out[k] = v
	}
	return out
}

// Save writes the info file with 4-space indentation.
func (i *Info) Save() error {
	data, err := json.MarshalIndent(i.entries, "", "    ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(i.path, data, 0644); err != nil {
		return fmt.Errorf("write annotation info: %w", err)
	}
	return nil
}
