// Package tlsconf derives TLS credentials for the daemon's TCP listener from
// a shared passphrase.
//
// The private key is derived deterministically via HKDF so the daemon and
// every client derive the same key from the same passphrase. The certificate
// itself is random; clients verify the server's public key directly, so no
// certificate distribution or CA is involved.
//
// Key derivation:
//
//	HKDF-SHA256(ikm=passphrase, salt="recall-tls-v1", info="private-key")
//	→ 64 bytes → reduced mod curve order → deterministic ECDSA P-256 key
package tlsconf

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"golang.org/x/crypto/hkdf"
	"google.golang.org/grpc/credentials"
)

// DefaultPassphrase is used when no token is configured.
const DefaultPassphrase = "recall"

const serverName = "recall"

// ErrKeyMismatch is returned by the client verifier when the server's key
// was derived from a different passphrase.
var ErrKeyMismatch = errors.New("tlsconf: server public key does not match passphrase")

// Credentials holds both sides of the TLS setup for one passphrase.
type Credentials struct {
	// Server is used with tls.NewListener. NextProtos lets ALPN pick h2 for
	// gRPC and http/1.1 for the JSON API on the same port.
	Server *tls.Config
	// Client is the matching tls.Config for HTTP clients.
	Client *tls.Config
	// Fingerprint is the hex SHA-256 of the derived public key.
	Fingerprint string
}

// GRPC returns gRPC transport credentials built from c.Client.
func (c *Credentials) GRPC() credentials.TransportCredentials {
	return credentials.NewTLS(c.Client.Clone())
}

// New derives the credentials for passphrase.
func New(passphrase string) (*Credentials, error) {
	key, err := deriveKey(passphrase)
	if err != nil {
		return nil, fmt.Errorf("tlsconf: derive key: %w", err)
	}
	pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("tlsconf: marshal pubkey: %w", err)
	}

	cert, err := selfSignedCert(key)
	if err != nil {
		return nil, fmt.Errorf("tlsconf: cert: %w", err)
	}

	sum := sha256.Sum256(pub)
	return &Credentials{
		Server: &tls.Config{
			Certificates: []tls.Certificate{cert},
			NextProtos:   []string{"h2", "http/1.1"},
			MinVersion:   tls.VersionTLS13,
		},
		Client: &tls.Config{
			// Chain verification is replaced by the public key check below.
			InsecureSkipVerify:    true, //nolint:gosec
			ServerName:            serverName,
			MinVersion:            tls.VersionTLS13,
			VerifyPeerCertificate: verifyKey(pub),
		},
		Fingerprint: hex.EncodeToString(sum[:]),
	}, nil
}

// verifyKey returns a verifier accepting only a leaf certificate whose
// public key equals expected.
func verifyKey(expected []byte) func([][]byte, [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return errors.New("tlsconf: server presented no certificate")
		}
		cert, err := x509.ParseCertificate(rawCerts[0])
		if err != nil {
			return fmt.Errorf("tlsconf: parse server cert: %w", err)
		}
		pub, err := x509.MarshalPKIXPublicKey(cert.PublicKey)
		if err != nil {
			return fmt.Errorf("tlsconf: marshal server pubkey: %w", err)
		}
		if !bytes.Equal(pub, expected) {
			return ErrKeyMismatch
		}
		return nil
	}
}

// deriveKey derives a deterministic ECDSA P-256 private key from passphrase.
func deriveKey(passphrase string) (*ecdsa.PrivateKey, error) {
	r := hkdf.New(sha256.New, []byte(passphrase), []byte("recall-tls-v1"), []byte("private-key"))
	buf := make([]byte, 64)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("hkdf read: %w", err)
	}

	curve := elliptic.P256()
	n := new(big.Int).Sub(curve.Params().N, big.NewInt(1))
	k := new(big.Int).SetBytes(buf)
	k.Mod(k, n)
	k.Add(k, big.NewInt(1)) // k ∈ [1, N-1]

	key := new(ecdsa.PrivateKey)
	key.PublicKey.Curve = curve
	key.D = k
	key.PublicKey.X, key.PublicKey.Y = curve.ScalarBaseMult(k.Bytes())
	return key, nil
}

// selfSignedCert builds a random self-signed certificate for key.
func selfSignedCert(key *ecdsa.PrivateKey) (tls.Certificate, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, err
	}
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: serverName},
		DNSNames:              []string{serverName},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(100 * 365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, err
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}, nil
}
