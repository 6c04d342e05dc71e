// Package keygen generates ephemeral key pairs for SSH authentication.
//
// Keys exist only in process memory for the lifetime of one build run:
// the public half is embedded in server metadata at creation time and the
// private half is handed to the SSH client, never written to disk.
package keygen

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// KeyPair holds an ECDSA key pair in ready-to-use formats.
type KeyPair struct {
	// PrivateKey is the private key in PEM-encoded SEC 1 format.
	PrivateKey []byte
	// PublicKey is the public key in OpenSSH authorized_keys format,
	// e.g. "ecdsa-sha2-nistp256 AAAA...".
	PublicKey []byte
}

// GenerateECDSAKeyPair generates a new P-256 ECDSA key pair.
func GenerateECDSAKeyPair() (*KeyPair, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ECDSA private key: %w", err)
	}

	privDER, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ECDSA private key: %w", err)
	}
	privBlock := pem.Block{
		Type:  "EC PRIVATE KEY",
		Bytes: privDER,
	}
	privateKeyPEM := pem.EncodeToMemory(&privBlock)

	publicKey, err := ssh.NewPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH public key: %w", err)
	}
	pubKeyBytes := ssh.MarshalAuthorizedKey(publicKey)

	return &KeyPair{
		PrivateKey: privateKeyPEM,
		PublicKey:  pubKeyBytes,
	}, nil
}

// AuthorizedKeyTag renders the public key as a Scaleway AUTHORIZED_KEY server
// tag. Tag values cannot contain spaces, so the key type and base64 body are
// joined with an underscore ("ecdsa-sha2-nistp256_AAAA...").
func (k *KeyPair) AuthorizedKeyTag() string {
	fields := strings.Fields(string(k.PublicKey))
	return "AUTHORIZED_KEY=" + strings.Join(fields, "_")
}
