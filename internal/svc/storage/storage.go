// Package storage is the device-local key-value store. It remembers which
// profiles this device has signed into, as a comma-joined id list under a
// fixed key, the way the mobile shell's local storage does.
package storage

import (
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// KeyProfiles holds the comma-joined list of profile ids previously used
// on this device.
const KeyProfiles = "profiles"

type Instance interface {
	// Read returns the value for key, or "" when absent.
	Read(key string) (string, error)
	Write(key string, value string) error
}

type Options struct {
	File string
}

// New returns a file-backed store. The file is created on first write.
func New(opt Options) (Instance, error) {
	s := &inst{
		file:   opt.File,
		values: map[string]string{},
	}

	b, err := os.ReadFile(opt.File)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}

		return s, nil
	}

	if err = json.Unmarshal(b, &s.values); err != nil {
		return nil, err
	}

	return s, nil
}

type inst struct {
	mu     sync.Mutex
	file   string
	values map[string]string
}

func (s *inst) Read(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.values[key], nil
}

func (s *inst) Write(key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value

	b, err := json.Marshal(s.values)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.file); dir != "." {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return os.WriteFile(s.file, b, 0o600)
}

// NewMemory returns a store that forgets on restart. Used in tests and by
// deployments that do not persist device state.
func NewMemory() Instance {
	return &memInst{values: map[string]string{}}
}

type memInst struct {
	mu     sync.Mutex
	values map[string]string
}

func (s *memInst) Read(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.values[key], nil
}

func (s *memInst) Write(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value

	return nil
}
