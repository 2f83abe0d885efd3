package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"atsforge/internal/config"
)

// writeSelfSignedCert generates a self-signed certificate pair and writes it
// to cert.pem and key.pem in dir
func writeSelfSignedCert(t *testing.T, dir string, notAfter time.Time) (certFile, keyFile string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		DNSNames:     []string{"localhost"},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("failed to marshal key: %v", err)
	}

	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	if err := os.WriteFile(certFile, certPEM, 0600); err != nil {
		t.Fatalf("failed to write cert file: %v", err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0600); err != nil {
		t.Fatalf("failed to write key file: %v", err)
	}

	return certFile, keyFile
}

func TestCertificateManagerLoadsFromFiles(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeSelfSignedCert(t, dir, time.Now().Add(30*24*time.Hour))

	tlsCfg := &config.TLSConfig{
		Mode:     "server",
		CertFile: certFile,
		KeyFile:  keyFile,
	}
	cm := NewCertificateManager(tlsCfg, &config.AutoReloadConfig{}, testLogger(t))

	if err := cm.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer func() {
		if err := cm.Stop(); err != nil {
			t.Errorf("Stop() failed: %v", err)
		}
	}()

	cert, err := cm.GetServerCertificate(&tls.ClientHelloInfo{ServerName: "localhost"})
	if err != nil {
		t.Fatalf("GetServerCertificate() failed: %v", err)
	}
	if cert == nil {
		t.Fatal("expected a server certificate")
	}

	timeToExpiry, err := cm.CheckExpiry()
	if err != nil {
		t.Fatalf("CheckExpiry() failed: %v", err)
	}
	if timeToExpiry <= 29*24*time.Hour {
		t.Errorf("unexpected time to expiry: %v", timeToExpiry)
	}

	metrics := cm.GetMetrics()
	if metrics.ReloadCount != 1 || metrics.ReloadSuccessCount != 1 {
		t.Errorf("expected one successful reload, got %+v", metrics)
	}
	if !metrics.LastReloadSuccess {
		t.Error("last reload should be marked successful")
	}
}

func TestCertificateManagerRejectsExpiredCertificate(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeSelfSignedCert(t, dir, time.Now().Add(-time.Minute))

	tlsCfg := &config.TLSConfig{
		Mode:     "server",
		CertFile: certFile,
		KeyFile:  keyFile,
	}
	cm := NewCertificateManager(tlsCfg, &config.AutoReloadConfig{}, testLogger(t))

	if err := cm.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer func() {
		_ = cm.Stop()
	}()

	if _, err := cm.GetServerCertificate(&tls.ClientHelloInfo{}); err == nil {
		t.Error("expired certificate should not be served")
	}

	timeToExpiry, err := cm.CheckExpiry()
	if err != nil {
		t.Fatalf("CheckExpiry() failed: %v", err)
	}
	if timeToExpiry > 0 {
		t.Errorf("expected negative time to expiry, got %v", timeToExpiry)
	}
}

func TestCertificateManagerLoadsFromContent(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeSelfSignedCert(t, dir, time.Now().Add(24*time.Hour))

	certPEM, err := os.ReadFile(certFile)
	if err != nil {
		t.Fatalf("failed to read cert file: %v", err)
	}
	keyPEM, err := os.ReadFile(keyFile)
	if err != nil {
		t.Fatalf("failed to read key file: %v", err)
	}

	tlsCfg := &config.TLSConfig{
		Mode:        "mutual",
		CertContent: string(certPEM),
		KeyContent:  string(keyPEM),
		CAContent:   string(certPEM),
	}
	cm := NewCertificateManager(tlsCfg, &config.AutoReloadConfig{}, testLogger(t))

	if err := cm.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer func() {
		_ = cm.Stop()
	}()

	if _, err := cm.GetServerCertificate(&tls.ClientHelloInfo{}); err != nil {
		t.Fatalf("GetServerCertificate() failed: %v", err)
	}
	if cm.GetCACertPool() == nil {
		t.Error("mutual mode should load the CA certificate pool")
	}
}

func TestCertificateManagerReloadCallback(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeSelfSignedCert(t, dir, time.Now().Add(24*time.Hour))

	tlsCfg := &config.TLSConfig{
		Mode:     "server",
		CertFile: certFile,
		KeyFile:  keyFile,
	}
	cm := NewCertificateManager(tlsCfg, &config.AutoReloadConfig{}, testLogger(t))

	done := make(chan bool, 1)
	cm.AddReloadCallback(func(success bool, err error) {
		done <- success
	})

	if err := cm.ReloadCertificates(); err != nil {
		t.Fatalf("ReloadCertificates() failed: %v", err)
	}

	select {
	case success := <-done:
		if !success {
			t.Error("reload callback should report success")
		}
	case <-time.After(time.Second):
		t.Fatal("reload callback was not invoked")
	}
}
