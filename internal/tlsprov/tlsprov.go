// Package tlsprov loads or generates the server's self-signed certificate.
package tlsprov

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"linequery/internal/config"
	"linequery/internal/logger"
)

const (
	keyBits = 2048
	subject = "/C=US/ST=State/L=City/O=Org/OU=Unit/CN=localhost"
)

var opensslBinary = "openssl"

// GenerateError reports a failed certificate generation step. Partial
// artifacts have already been removed when it is returned.
type GenerateError struct {
	Step string
	Err  error
}

func (e *GenerateError) Error() string {
	return fmt.Sprintf("tls %s: %v", e.Step, e.Err)
}

func (e *GenerateError) Unwrap() error { return e.Err }

// Paths returns the certificate and key locations for opts.
func Paths(opts config.TLSOptions) (certPath, keyPath string) {
	return filepath.Join(opts.Dir, opts.CertFile), filepath.Join(opts.Dir, opts.KeyFile)
}

// Provision returns a server TLS config, generating a self-signed pair
// first when either file is missing.
func Provision(opts config.TLSOptions) (*tls.Config, error) {
	certPath, keyPath := Paths(opts)
	if !exists(certPath) || !exists(keyPath) {
		logger.Info("Generating self-signed certificate in %s (%s)", opts.Dir, opts.Generator)
		if err := generate(opts, certPath, keyPath); err != nil {
			return nil, err
		}
	} else {
		logger.Debug("Using existing certificate %s", certPath)
	}

	pair, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("load certificate: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{pair},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

func generate(opts config.TLSOptions, certPath, keyPath string) error {
	if err := os.MkdirAll(opts.Dir, 0o700); err != nil {
		return &GenerateError{Step: "mkdir", Err: err}
	}

	var err error
	switch opts.Generator {
	case "native":
		err = generateNative(certPath, keyPath, opts.ValidityDays)
	default:
		err = generateOpenSSL(certPath, keyPath, opts.ValidityDays)
	}
	if err != nil {
		os.Remove(certPath)
		os.Remove(keyPath)
		return err
	}
	return nil
}

func generateOpenSSL(certPath, keyPath string, days int) error {
	if err := run("genrsa", opensslBinary, "genrsa", "-out", keyPath, strconv.Itoa(keyBits)); err != nil {
		return err
	}
	return run("req", opensslBinary, "req", "-new", "-x509",
		"-key", keyPath,
		"-out", certPath,
		"-days", strconv.Itoa(days),
		"-nodes",
		"-subj", subject,
	)
}

func run(step, name string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.Command(name, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return &GenerateError{Step: step, Err: err}
	}
	return nil
}

func generateNative(certPath, keyPath string, days int) error {
	key, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return &GenerateError{Step: "genrsa", Err: err}
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return &GenerateError{Step: "serial", Err: err}
	}

	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Country:            []string{"US"},
			Province:           []string{"State"},
			Locality:           []string{"City"},
			Organization:       []string{"Org"},
			OrganizationalUnit: []string{"Unit"},
			CommonName:         "localhost",
		},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.AddDate(0, 0, days),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return &GenerateError{Step: "req", Err: err}
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		return &GenerateError{Step: "write key", Err: err}
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := os.WriteFile(certPath, certPEM, 0o644); err != nil {
		return &GenerateError{Step: "write certificate", Err: err}
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
