package casclient

import (
	"context"
	"crypto"
	"net/http"

	"github.com/go-logr/logr"
	oerrors "github.com/porthorian/casclient/pkg/errors"
	"github.com/porthorian/casclient/pkg/proxy"
	"github.com/porthorian/casclient/pkg/validation"
)

type Config struct {
	// ServerURLPrefix is the CAS server base URL, e.g.
	// "https://cas.example.org/cas".
	ServerURLPrefix string

	// ProxyCallbackURL, when set, is registered with the server as the
	// pgtUrl so validations receive proxy-granting tickets.
	ProxyCallbackURL string

	// Renew demands fresh credentials instead of an existing single
	// sign-on session.
	Renew bool

	// PGTStorage overrides the storage backend selected by Runtime.
	PGTStorage proxy.Storage

	// PrivateKey decrypts proxy-granting tickets delivered encrypted
	// instead of through the callback.
	PrivateKey crypto.Decrypter

	// HTTPClient overrides the transport built from Runtime.TLS.
	HTTPClient *http.Client

	ExtraParams ParamsFunc
	PostProcess PostProcessFunc
	Logger      logr.Logger
	Runtime     RuntimeConfig
}

type Client struct {
	validator     Validator
	storage       proxy.Storage
	retriever     *proxy.Retriever
	logger        logr.Logger
	closeResource func() error
}

// New builds a Client around a caller-supplied Validator. Most callers
// want NewDefault instead.
func New(validator Validator, config Config) (*Client, error) {
	closeResource, resolvedConfig, err := config.initialize(context.Background())
	if err != nil {
		return nil, err
	}

	if validator == nil {
		_ = closeResource()
		return nil, oerrors.ErrMissingValidator
	}

	return &Client{
		validator:     validator,
		storage:       resolvedConfig.PGTStorage,
		retriever:     proxy.NewRetriever(resolvedConfig.ServerURLPrefix, resolvedConfig.HTTPClient, resolvedConfig.Logger),
		logger:        resolvedConfig.Logger,
		closeResource: closeResource,
	}, nil
}

// NewDefault builds a Client whose validator is chosen from the variant
// registry by Runtime.Protocol.
func NewDefault(config Config) (*Client, error) {
	closeResource, resolvedConfig, err := config.initialize(context.Background())
	if err != nil {
		return nil, err
	}

	variant := resolvedConfig.Runtime.Protocol
	if variant == "" {
		variant = "serviceValidate"
	}

	factory, ok := validation.DefaultRegistry().Factory(variant)
	if !ok {
		_ = closeResource()
		return nil, oerrors.New(oerrors.CodeInvalidConfiguration, "casclient: unknown protocol variant "+variant)
	}

	resolver := proxy.NewResolver(resolvedConfig.PGTStorage, resolvedConfig.PrivateKey, resolvedConfig.Logger)

	validator, err := factory(validation.Config{
		ServerURLPrefix:  resolvedConfig.ServerURLPrefix,
		Renew:            resolvedConfig.Renew,
		ProxyCallbackURL: resolvedConfig.ProxyCallbackURL,
		ExtraParams:      resolvedConfig.ExtraParams,
		HTTPClient:       resolvedConfig.HTTPClient,
		Resolver:         resolver,
		PostProcess:      resolvedConfig.PostProcess,
		Logger:           resolvedConfig.Logger,
	})
	if err != nil {
		_ = closeResource()
		return nil, err
	}

	return &Client{
		validator:     validator,
		storage:       resolvedConfig.PGTStorage,
		retriever:     proxy.NewRetriever(resolvedConfig.ServerURLPrefix, resolvedConfig.HTTPClient, resolvedConfig.Logger),
		logger:        resolvedConfig.Logger,
		closeResource: closeResource,
	}, nil
}

// ValidateTicket validates an opaque service ticket issued for service
// and returns the authenticated assertion. Transport and protocol
// failures are returned as structured errors; proxy-granting-ticket
// resolution failures degrade to an assertion without a PGT.
func (c *Client) ValidateTicket(ctx context.Context, ticket string, service string) (Assertion, error) {
	if c == nil || c.validator == nil {
		return Assertion{}, oerrors.ErrMissingValidator
	}

	return c.validator.Validate(ctx, ticket, service)
}

// RetrieveProxyTicket exchanges a resolved proxy-granting ticket for a
// proxy ticket scoped to targetService.
func (c *Client) RetrieveProxyTicket(ctx context.Context, pgt string, targetService string) (string, error) {
	if c == nil || c.retriever == nil {
		return "", oerrors.ErrMissingValidator
	}

	return c.retriever.RetrieveProxyTicket(ctx, pgt, targetService)
}

// ProxyReceptor returns the HTTP handler to mount at the
// ProxyCallbackURL path. The CAS server delivers IOU and PGT pairs to
// it during validation.
func (c *Client) ProxyReceptor() http.Handler {
	return proxy.ReceptorHandler(c.storage, c.logger)
}

func (c *Client) Close() error {
	if c == nil || c.closeResource == nil {
		return nil
	}

	err := c.closeResource()
	if err != nil {
		return oerrors.Wrap(oerrors.CodeUnknown, "casclient: failed to close client resources", err)
	}
	c.closeResource = nil
	c.validator = nil
	return nil
}
