// Package sign provides the request-signing collaborator used by
// providers that authenticate with a merchant key pair.
package sign

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// Signer produces a raw signature over a payload. Callers encode it
// (base64) as their provider requires.
type Signer interface {
	Sign(payload string) ([]byte, error)
}

// RSASigner signs payloads with SHA-256 and a merchant RSA private key.
type RSASigner struct {
	key *rsa.PrivateKey
}

// NewRSASigner parses a PEM-encoded RSA private key (PKCS#1 or PKCS#8).
func NewRSASigner(pemBytes []byte) (*RSASigner, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("sign: no PEM block in key material")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return &RSASigner{key: key}, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("sign: parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("sign: key is not RSA")
	}
	return &RSASigner{key: key}, nil
}

// NewRSASignerFromFile loads the PEM key from disk.
func NewRSASignerFromFile(path string) (*RSASigner, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sign: read key file: %w", err)
	}
	return NewRSASigner(b)
}

func (s *RSASigner) Sign(payload string) ([]byte, error) {
	digest := sha256.Sum256([]byte(payload))
	return rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest[:])
}
