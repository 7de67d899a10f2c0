package storage

import (
	"path/filepath"
	"testing"

	"github.com/petstead/api/internal/testutil"
)

func TestAbsentKeyReadsEmpty(t *testing.T) {
	t.Parallel()

	s := NewMemory()

	v, err := s.Read(KeyProfiles)
	testutil.IsNil(t, err, "read")
	testutil.Assert(t, "", v, "absent key is empty, not an error")
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "device.json")

	s, err := New(Options{File: file})
	testutil.IsNil(t, err, "open fresh store")

	testutil.IsNil(t, s.Write(KeyProfiles, "u1,u2"), "write")

	reopened, err := New(Options{File: file})
	testutil.IsNil(t, err, "reopen")

	v, err := reopened.Read(KeyProfiles)
	testutil.IsNil(t, err, "read")
	testutil.Assert(t, "u1,u2", v, "value survives restart")
}

func TestWriteOverwrites(t *testing.T) {
	t.Parallel()

	s := NewMemory()

	testutil.IsNil(t, s.Write(KeyProfiles, "u1"), "first write")
	testutil.IsNil(t, s.Write(KeyProfiles, "u1,u2"), "second write")

	v, err := s.Read(KeyProfiles)
	testutil.IsNil(t, err, "read")
	testutil.Assert(t, "u1,u2", v, "latest value wins")
}
