// Package tofu implements trust-on-first-use certificate pinning for the
// game server's connection to the account service: the first certificate
// seen for a host is remembered, and any later connection presenting a
// different certificate is rejected rather than silently trusted.
package tofu

import (
	"crypto/sha256"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrCertificateMismatch is returned when a host's pinned fingerprint
// doesn't match the certificate just presented.
var ErrCertificateMismatch = errors.New("tofu: certificate fingerprint mismatch")

// entry is one pinned host's record, as persisted to disk.
type entry struct {
	Host        string `json:"host"`
	Fingerprint string `json:"fingerprint"` // hex-encoded SHA-256 of the leaf certificate
}

// Store is a known-hosts file of pinned host->fingerprint records. It is
// safe for concurrent use.
type Store struct {
	path string

	mu      sync.Mutex
	entries map[string]string // host -> hex fingerprint
}

// Open loads path if it exists, or starts empty if it doesn't — the first
// connection to each host then pins it.
func Open(path string) (*Store, error) {
	s := &Store{path: path, entries: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("tofu: reading known-hosts file: %w", err)
	}

	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("tofu: parsing known-hosts file: %w", err)
	}
	for _, e := range entries {
		s.entries[e.Host] = e.Fingerprint
	}
	return s, nil
}

// Verifier returns a tls.Config.VerifyConnection callback pinned to host:
// it pins the leaf certificate of the first connection seen for that
// host, and rejects any later connection whose leaf certificate doesn't
// match the pin.
func (s *Store) Verifier(host string) func(tls.ConnectionState) error {
	return func(cs tls.ConnectionState) error {
		return s.verify(host, cs)
	}
}

func (s *Store) verify(host string, cs tls.ConnectionState) error {
	if len(cs.PeerCertificates) == 0 {
		return errors.New("tofu: no peer certificate presented")
	}
	fp := fingerprint(cs.PeerCertificates[0].Raw)

	s.mu.Lock()
	defer s.mu.Unlock()

	pinned, known := s.entries[host]
	if !known {
		s.entries[host] = fp
		return s.persistLocked()
	}
	if pinned != fp {
		return fmt.Errorf("%w: host %s", ErrCertificateMismatch, host)
	}
	return nil
}

// Forget removes a host's pin, so the next connection re-pins it — for
// operators rotating a certificate deliberately.
func (s *Store) Forget(host string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, host)
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	entries := make([]entry, 0, len(s.entries))
	for host, fp := range s.entries {
		entries = append(entries, entry{Host: host, Fingerprint: fp})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("tofu: encoding known-hosts file: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".known_hosts-*")
	if err != nil {
		return fmt.Errorf("tofu: creating temp known-hosts file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("tofu: writing temp known-hosts file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("tofu: closing temp known-hosts file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("tofu: renaming temp known-hosts file: %w", err)
	}
	return nil
}

func fingerprint(der []byte) string {
	sum := sha256.Sum256(der)
	return fmt.Sprintf("%x", sum)
}
