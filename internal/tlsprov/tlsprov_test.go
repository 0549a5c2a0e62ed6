package tlsprov

import (
	"crypto/x509"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"linequery/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions(t *testing.T, generator string) config.TLSOptions {
	t.Helper()
	opts := config.DefaultOptions().TLS
	opts.Dir = filepath.Join(t.TempDir(), "certs")
	opts.Generator = generator
	return opts
}

func TestProvisionNative(t *testing.T) {
	opts := testOptions(t, "native")
	cfg, err := Provision(opts)
	require.NoError(t, err)
	require.Len(t, cfg.Certificates, 1)

	leaf, err := x509.ParseCertificate(cfg.Certificates[0].Certificate[0])
	require.NoError(t, err)
	assert.Equal(t, "localhost", leaf.Subject.CommonName)
	assert.Equal(t, []string{"Org"}, leaf.Subject.Organization)

	certPath, keyPath := Paths(opts)
	assert.FileExists(t, certPath)
	assert.FileExists(t, keyPath)
}

func TestProvisionReusesExistingPair(t *testing.T) {
	opts := testOptions(t, "native")
	_, err := Provision(opts)
	require.NoError(t, err)

	certPath, _ := Paths(opts)
	before, err := os.ReadFile(certPath)
	require.NoError(t, err)

	_, err = Provision(opts)
	require.NoError(t, err)
	after, err := os.ReadFile(certPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestProvisionOpenSSL(t *testing.T) {
	if _, err := exec.LookPath("openssl"); err != nil {
		t.Skip("openssl not installed")
	}
	opts := testOptions(t, "openssl")
	cfg, err := Provision(opts)
	require.NoError(t, err)
	assert.Len(t, cfg.Certificates, 1)
}

func TestProvisionFailureRemovesArtifacts(t *testing.T) {
	orig := opensslBinary
	opensslBinary = "linequery-no-such-openssl"
	t.Cleanup(func() { opensslBinary = orig })

	opts := testOptions(t, "openssl")
	_, err := Provision(opts)
	require.Error(t, err)

	var genErr *GenerateError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "genrsa", genErr.Step)

	certPath, keyPath := Paths(opts)
	assert.NoFileExists(t, certPath)
	assert.NoFileExists(t, keyPath)
}

func TestProvisionCorruptPair(t *testing.T) {
	opts := testOptions(t, "native")
	require.NoError(t, os.MkdirAll(opts.Dir, 0o700))
	certPath, keyPath := Paths(opts)
	require.NoError(t, os.WriteFile(certPath, []byte("not a cert"), 0o644))
	require.NoError(t, os.WriteFile(keyPath, []byte("not a key"), 0o600))

	_, err := Provision(opts)
	assert.Error(t, err)
}
