package ssl

import (
	"crypto/tls"
	"crypto/x509"
)

type KeyStoreType string

const (
	KeyStoreTypeNone   KeyStoreType = ""
	KeyStoreTypePEM    KeyStoreType = "PEM"
	KeyStoreTypePKCS12 KeyStoreType = "PKCS12"
)

// Protocol names accepted by Config.Protocol. "SSL" and "TLS" leave the
// negotiated version to the library; the versioned names pin a minimum.
const (
	ProtocolSSL   = "SSL"
	ProtocolTLS   = "TLS"
	ProtocolTLS12 = "TLSv1.2"
	ProtocolTLS13 = "TLSv1.3"
)

// Config describes the outbound trust configuration used to reach the
// CAS server. The zero value means: platform default verification, no
// client certificate.
type Config struct {
	// Protocol selects the minimum secure-transport version.
	Protocol string

	// IgnoreSSLFailures disables certificate chain and hostname
	// verification unconditionally. This is a deliberate insecure escape
	// hatch for development setups; it short-circuits every other field.
	IgnoreSSLFailures bool

	// Key store holding the client certificate presented to the server.
	KeyStoreType KeyStoreType
	KeyStorePath string
	KeyStorePass string

	// KeyManagerType is accepted for configuration parity with other CAS
	// clients; Go selects the key handling from the key material itself.
	KeyManagerType string

	// CertificatePassword decrypts an encrypted private key inside a PEM
	// key store.
	CertificatePassword string

	// RootCAs optionally replaces the platform trust anchors, for CAS
	// servers issued by a private CA.
	RootCAs *x509.CertPool

	// VerifyConnection is the caller-supplied verifier run on every
	// connection after standard verification, the hostname-verifier
	// equivalent. One function is reused across connections and must be
	// safe for concurrent use. Nil means platform default behavior.
	VerifyConnection func(tls.ConnectionState) error
}

// isDefault reports whether the configuration requests no deviation from
// the platform default transport.
func (c Config) isDefault() bool {
	return !c.IgnoreSSLFailures &&
		c.KeyStoreType == KeyStoreTypeNone &&
		c.RootCAs == nil &&
		c.VerifyConnection == nil &&
		(c.Protocol == "" || c.Protocol == ProtocolSSL || c.Protocol == ProtocolTLS)
}
