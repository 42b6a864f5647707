package ssl

import (
	"crypto/tls"
	"fmt"
	"net/http"

	ocrypto "github.com/porthorian/casclient/pkg/crypto"
	oerrors "github.com/porthorian/casclient/pkg/errors"
)

// NewTLSConfig builds the TLS configuration described by cfg. A nil
// result with a nil error means the platform default transport should be
// used unmodified. Key-store problems fail here, before any network
// call; there is no silent fallback to defaults.
func NewTLSConfig(cfg Config) (*tls.Config, error) {
	if cfg.IgnoreSSLFailures {
		return &tls.Config{
			InsecureSkipVerify: true,
		}, nil
	}

	if cfg.isDefault() {
		return nil, nil
	}

	minVersion, err := minTLSVersion(cfg.Protocol)
	if err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{
		MinVersion:       minVersion,
		RootCAs:          cfg.RootCAs,
		VerifyConnection: cfg.VerifyConnection,
	}

	if cfg.KeyStoreType != KeyStoreTypeNone {
		certificate, err := loadClientCertificate(cfg)
		if err != nil {
			return nil, oerrors.Wrap(oerrors.CodeInvalidConfiguration, "ssl: unable to load key store", err)
		}
		tlsConfig.Certificates = []tls.Certificate{certificate}
	}

	return tlsConfig, nil
}

// NewHTTPClient builds the HTTP client used for validation and proxy
// calls. With a default configuration the returned client carries the
// default transport untouched.
func NewHTTPClient(cfg Config) (*http.Client, error) {
	tlsConfig, err := NewTLSConfig(cfg)
	if err != nil {
		return nil, err
	}

	if tlsConfig == nil {
		return &http.Client{}, nil
	}

	return &http.Client{
		Transport: &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			TLSClientConfig:   tlsConfig,
			ForceAttemptHTTP2: true,
		},
	}, nil
}

func loadClientCertificate(cfg Config) (tls.Certificate, error) {
	if cfg.KeyStorePath == "" {
		return tls.Certificate{}, fmt.Errorf("key store path is required for key store type %q", cfg.KeyStoreType)
	}

	switch cfg.KeyStoreType {
	case KeyStoreTypePEM:
		return ocrypto.LoadTLSCertificatePEM(cfg.KeyStorePath, cfg.CertificatePassword)
	case KeyStoreTypePKCS12:
		password := cfg.KeyStorePass
		if password == "" {
			password = cfg.CertificatePassword
		}
		return ocrypto.LoadTLSCertificatePKCS12(cfg.KeyStorePath, password)
	default:
		return tls.Certificate{}, fmt.Errorf("unsupported key store type %q", cfg.KeyStoreType)
	}
}

func minTLSVersion(protocol string) (uint16, error) {
	switch protocol {
	case "", ProtocolSSL, ProtocolTLS:
		return 0, nil
	case ProtocolTLS12:
		return tls.VersionTLS12, nil
	case ProtocolTLS13:
		return tls.VersionTLS13, nil
	default:
		return 0, oerrors.New(oerrors.CodeInvalidConfiguration, fmt.Sprintf("ssl: unsupported protocol %q", protocol))
	}
}
