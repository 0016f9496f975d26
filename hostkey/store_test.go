package hostkey

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ricardo-massaro/eessh/ssh"
)

func TestNewTextFileStoreMissingFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	s, err := NewTextFileStore(filepath.Join(dir, "does-not-exist"))
	require.NoError(t, err)
	require.Empty(t, s.records)
}

func TestTextFileStoreFirstSightingRemembersAndPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "known_hosts")
	s, err := NewTextFileStore(path)
	require.NoError(t, err)

	decision, err := s.Check("example.com:22", "ssh-rsa", []byte("host-key-blob"))
	require.NoError(t, err)
	require.Equal(t, ssh.HostKeyAcceptAndRemember, decision)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(contents), "example.com 22 ssh-rsa")
}

func TestTextFileStoreMatchingHashAccepts(t *testing.T) {
	dir := t.TempDir()
	s, err := NewTextFileStore(filepath.Join(dir, "known_hosts"))
	require.NoError(t, err)

	blob := []byte("host-key-blob")
	_, err = s.Check("example.com:22", "ssh-rsa", blob)
	require.NoError(t, err)

	decision, err := s.Check("example.com:22", "ssh-rsa", blob)
	require.NoError(t, err)
	require.Equal(t, ssh.HostKeyAccept, decision)
}

func TestTextFileStoreChangedHashRejects(t *testing.T) {
	dir := t.TempDir()
	s, err := NewTextFileStore(filepath.Join(dir, "known_hosts"))
	require.NoError(t, err)

	_, err = s.Check("example.com:22", "ssh-rsa", []byte("first-key"))
	require.NoError(t, err)

	decision, err := s.Check("example.com:22", "ssh-rsa", []byte("second-key"))
	require.Equal(t, ssh.HostKeyReject, decision)
	require.ErrorIs(t, err, ErrHostKeyChanged)
}

func TestNewTextFileStoreLoadsExistingRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "known_hosts")
	require.NoError(t, os.WriteFile(path, []byte(
		"# comment\nexample.com 22 ssh-rsa c29tZS1oYXNo\n"), 0o600))

	s, err := NewTextFileStore(path)
	require.NoError(t, err)

	decision, err := s.Check("example.com:22", "ssh-rsa", nil)
	// nil blob hashes to something other than the stored value, so this
	// must be reported as changed rather than matching by accident.
	require.Equal(t, ssh.HostKeyReject, decision)
	require.ErrorIs(t, err, ErrHostKeyChanged)
}
