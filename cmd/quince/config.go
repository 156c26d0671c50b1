package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"time"

	"github.com/pkg/errors"

	"github.com/tawawhite/quic"
)

// newConfig builds the engine Config this CLI's client/server
// subcommands share, following the teacher's cmd/quince newConfig()
// pattern (referenced by client.go but never itself checked in with
// the teacher's trimmed copy) plus quic.NewConfig's own defaults.
func newConfig() *quic.Config {
	config := quic.NewConfig(&tls.Config{
		NextProtos: []string{"quince"},
		MinVersion: tls.VersionTLS13,
	})
	return config
}

// generateSelfSignedCert produces an ephemeral ECDSA certificate for
// the server subcommand when no -cert/-key pair is given, so `quince
// server` works out of the box for local testing. No pack dependency
// offers certificate generation; crypto/x509's own self-signed-cert
// recipe is the standard one Go programs use for this, so it is
// implemented directly against the standard library here.
func generateSelfSignedCert(hosts []string) (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "generate key")
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "generate serial")
	}
	template := x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{Organization: []string{"quince"}},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IsCA:         true,
		DNSNames:     hosts,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, errors.Wrap(err, "create certificate")
	}
	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
	}, nil
}
