package tofu

import (
	"crypto/tls"
	"crypto/x509"
	"path/filepath"
	"testing"
)

func fakeConnState(der []byte) tls.ConnectionState {
	return tls.ConnectionState{PeerCertificates: []*x509.Certificate{{Raw: der}}}
}

func TestFirstConnectionPinsCertificate(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "known_hosts.json"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	verify := s.Verifier("account.example")
	if err := verify(fakeConnState([]byte("cert-a"))); err != nil {
		t.Fatalf("expected first connection to pin successfully, got %v", err)
	}
}

func TestMismatchedCertificateIsRejected(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "known_hosts.json"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	verify := s.Verifier("account.example")

	if err := verify(fakeConnState([]byte("cert-a"))); err != nil {
		t.Fatalf("first pin failed: %v", err)
	}
	if err := verify(fakeConnState([]byte("cert-b"))); err == nil {
		t.Fatal("expected a different certificate to be rejected")
	}
	if err := verify(fakeConnState([]byte("cert-a"))); err != nil {
		t.Fatalf("expected the originally pinned certificate to keep verifying, got %v", err)
	}
}

func TestPinSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "known_hosts.json")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s1.Verifier("account.example")(fakeConnState([]byte("cert-a"))); err != nil {
		t.Fatalf("pinning failed: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopening failed: %v", err)
	}
	if err := s2.Verifier("account.example")(fakeConnState([]byte("cert-b"))); err == nil {
		t.Fatal("expected the persisted pin to reject a different certificate after reopening")
	}
}

func TestForgetAllowsRePinning(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "known_hosts.json"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	verify := s.Verifier("account.example")

	if err := verify(fakeConnState([]byte("cert-a"))); err != nil {
		t.Fatalf("first pin failed: %v", err)
	}
	if err := s.Forget("account.example"); err != nil {
		t.Fatalf("Forget failed: %v", err)
	}
	if err := verify(fakeConnState([]byte("cert-b"))); err != nil {
		t.Fatalf("expected re-pinning after Forget to succeed, got %v", err)
	}
}
