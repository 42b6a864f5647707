package crypto

import (
	stdcrypto "crypto"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/pkcs12"
)

var (
	ErrInvalidKey    = errors.New("keys: invalid private key material")
	ErrNoDecrypter   = errors.New("keys: private key does not support decryption")
	ErrNoCertificate = errors.New("keys: no certificate in key store")
)

// LoadPrivateKeyPEM reads a PEM-encoded private key from path. An
// encrypted key block is decrypted with password. The returned key is
// usable for proxy-granting-ticket decryption.
func LoadPrivateKeyPEM(path string, password string) (stdcrypto.Decrypter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keys: read %s: %w", path, err)
	}
	return ParsePrivateKeyPEM(data, password)
}

// ParsePrivateKeyPEM parses the first private key block found in data.
func ParsePrivateKeyPEM(data []byte, password string) (stdcrypto.Decrypter, error) {
	for block, rest := pem.Decode(data); block != nil; block, rest = pem.Decode(rest) {
		switch block.Type {
		case "RSA PRIVATE KEY", "PRIVATE KEY", "EC PRIVATE KEY":
			der := block.Bytes
			if x509.IsEncryptedPEMBlock(block) {
				decrypted, err := x509.DecryptPEMBlock(block, []byte(password))
				if err != nil {
					return nil, fmt.Errorf("keys: decrypt private key: %w", err)
				}
				der = decrypted
			}
			return decrypterFromDER(der)
		}
	}
	return nil, ErrInvalidKey
}

// LoadPrivateKeyPKCS12 extracts the private key from a PKCS#12 key store.
func LoadPrivateKeyPKCS12(path string, password string) (stdcrypto.Decrypter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keys: read %s: %w", path, err)
	}

	key, _, err := pkcs12.Decode(data, password)
	if err != nil {
		return nil, fmt.Errorf("keys: decode pkcs12 key store: %w", err)
	}

	decrypter, ok := key.(stdcrypto.Decrypter)
	if !ok {
		return nil, ErrNoDecrypter
	}
	return decrypter, nil
}

// LoadTLSCertificatePEM loads a client certificate from a PEM bundle
// containing the certificate chain and the private key. An encrypted key
// block is decrypted with keyPassword.
func LoadTLSCertificatePEM(path string, keyPassword string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("keys: read %s: %w", path, err)
	}

	var certificate tls.Certificate
	var keyDER []byte

	for block, rest := pem.Decode(data); block != nil; block, rest = pem.Decode(rest) {
		switch block.Type {
		case "CERTIFICATE":
			certificate.Certificate = append(certificate.Certificate, block.Bytes)
		case "RSA PRIVATE KEY", "PRIVATE KEY", "EC PRIVATE KEY":
			keyDER = block.Bytes
			if x509.IsEncryptedPEMBlock(block) {
				decrypted, err := x509.DecryptPEMBlock(block, []byte(keyPassword))
				if err != nil {
					return tls.Certificate{}, fmt.Errorf("keys: decrypt private key: %w", err)
				}
				keyDER = decrypted
			}
		}
	}

	if len(certificate.Certificate) == 0 {
		return tls.Certificate{}, ErrNoCertificate
	}
	if keyDER == nil {
		return tls.Certificate{}, ErrInvalidKey
	}

	key, err := parsePrivateKeyDER(keyDER)
	if err != nil {
		return tls.Certificate{}, err
	}
	certificate.PrivateKey = key

	return certificate, nil
}

// LoadTLSCertificatePKCS12 loads a client certificate and key from a
// PKCS#12 key store protected by password.
func LoadTLSCertificatePKCS12(path string, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("keys: read %s: %w", path, err)
	}

	key, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("keys: decode pkcs12 key store: %w", err)
	}
	if cert == nil {
		return tls.Certificate{}, ErrNoCertificate
	}

	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  key,
		Leaf:        cert,
	}, nil
}

func decrypterFromDER(der []byte) (stdcrypto.Decrypter, error) {
	key, err := parsePrivateKeyDER(der)
	if err != nil {
		return nil, err
	}

	decrypter, ok := key.(stdcrypto.Decrypter)
	if !ok {
		return nil, ErrNoDecrypter
	}
	return decrypter, nil
}

func parsePrivateKeyDER(der []byte) (stdcrypto.PrivateKey, error) {
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	return nil, ErrInvalidKey
}
