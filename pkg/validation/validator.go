package validation

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	oerrors "github.com/porthorian/casclient/pkg/errors"
	"github.com/porthorian/casclient/pkg/proxy"
	"github.com/porthorian/casclient/pkg/response"
)

// PGTAttribute is the attribute name under which some CAS servers echo
// the proxy-granting-ticket field inside the attribute block.
const PGTAttribute = "proxyGrantingTicket"

// Assertion is the validated outcome of a ticket validation: the
// authenticated principal, its attributes, and the resolved
// proxy-granting ticket when proxying was requested. An Assertion is
// only ever constructed complete; a missing principal fails validation
// instead.
type Assertion struct {
	Principal           string
	Attributes          map[string]any
	ProxyGrantingTicket string
}

// PostProcessFunc is the extension hook invoked after the Assertion has
// been constructed. Returning an error converts the success into a
// validation failure.
type PostProcessFunc func(ctx context.Context, body string, assertion *Assertion) error

// ParamsFunc contributes protocol-specific query parameters to the
// validation request.
type ParamsFunc func(params url.Values)

type Config struct {
	// ServerURLPrefix is the CAS server base URL, e.g.
	// "https://cas.example.org/cas". Required.
	ServerURLPrefix string

	// URLSuffix selects the validation endpoint. Defaults to
	// "serviceValidate".
	URLSuffix string

	// Renew demands that the assertion was established from fresh
	// credentials rather than a single-sign-on session.
	Renew bool

	// ProxyCallbackURL is sent as pgtUrl so the server delivers a
	// proxy-granting ticket to the receptor endpoint.
	ProxyCallbackURL string

	// ExtraParams contributes additional protocol-specific parameters.
	ExtraParams ParamsFunc

	HTTPClient  *http.Client
	Resolver    *proxy.Resolver
	PostProcess PostProcessFunc
	Logger      logr.Logger
}

// ServiceValidator validates CAS 2.0 service tickets. Every Validate
// call is a single validation attempt with no shared mutable state, so
// one validator is safe for concurrent use.
type ServiceValidator struct {
	config Config
}

func NewServiceValidator(cfg Config) (*ServiceValidator, error) {
	if strings.TrimSpace(cfg.ServerURLPrefix) == "" {
		return nil, oerrors.Wrap(oerrors.CodeInvalidConfiguration, "", oerrors.ErrMissingServerURL)
	}

	cfg.ServerURLPrefix = strings.TrimRight(cfg.ServerURLPrefix, "/")
	if cfg.URLSuffix == "" {
		cfg.URLSuffix = "serviceValidate"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}

	return &ServiceValidator{config: cfg}, nil
}

// Validate exchanges the ticket for an assertion. The call either
// produces a complete Assertion or a structured validation error; there
// is no partial or retryable outcome, and no retry is performed here.
func (v *ServiceValidator) Validate(ctx context.Context, ticket string, service string) (Assertion, error) {
	logger := v.config.Logger.WithValues("request_id", uuid.NewString())

	body, err := v.retrieveResponse(ctx, ticket, service, logger)
	if err != nil {
		return Assertion{}, err
	}

	return v.parseResponse(ctx, body, logger)
}

func (v *ServiceValidator) retrieveResponse(ctx context.Context, ticket string, service string, logger logr.Logger) (string, error) {
	endpoint := v.buildValidationURL(ticket, service)
	logger.V(1).Info("validating ticket", "endpoint", v.config.ServerURLPrefix+"/"+v.config.URLSuffix)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", oerrors.Wrap(oerrors.CodeTransport, "casclient: unable to build validation request", err)
	}

	resp, err := v.config.HTTPClient.Do(request)
	if err != nil {
		return "", oerrors.Wrap(oerrors.CodeTransport, "casclient: validation request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", oerrors.New(oerrors.CodeTransport, fmt.Sprintf("casclient: validation endpoint returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", oerrors.Wrap(oerrors.CodeTransport, "casclient: unable to read validation response", err)
	}

	return string(body), nil
}

func (v *ServiceValidator) buildValidationURL(ticket string, service string) string {
	params := url.Values{}
	params.Set("ticket", ticket)
	params.Set("service", service)
	if v.config.Renew {
		params.Set("renew", "true")
	}
	if v.config.ProxyCallbackURL != "" {
		params.Set("pgtUrl", v.config.ProxyCallbackURL)
	}
	if v.config.ExtraParams != nil {
		v.config.ExtraParams(params)
	}

	return v.config.ServerURLPrefix + "/" + v.config.URLSuffix + "?" + params.Encode()
}

func (v *ServiceValidator) parseResponse(ctx context.Context, body string, logger logr.Logger) (Assertion, error) {
	extraction := response.Extract(body)

	if extraction.Failure != nil {
		message := extraction.Failure.Message
		if extraction.Failure.Code != "" {
			message = extraction.Failure.Code + ": " + message
		}
		return Assertion{}, oerrors.New(oerrors.CodeAuthenticationFailed, message)
	}

	if extraction.Principal == "" {
		return Assertion{}, oerrors.New(oerrors.CodeInvalidResponse, "casclient: no principal was found in the response from the CAS server")
	}

	proxyGrantingTicket := v.config.Resolver.Resolve(ctx, extraction.PGTField)

	attributes := extraction.Attributes
	if proxyGrantingTicket != "" {
		// Avoid exposing the ticket twice when the server also echoed it
		// inside the attribute block.
		delete(attributes, PGTAttribute)
	}

	assertion := Assertion{
		Principal:           extraction.Principal,
		Attributes:          attributes,
		ProxyGrantingTicket: proxyGrantingTicket,
	}

	if v.config.PostProcess != nil {
		if err := v.config.PostProcess(ctx, body, &assertion); err != nil {
			var typed *oerrors.Error
			if !stderrors.As(err, &typed) {
				err = oerrors.Wrap(oerrors.CodeAuthenticationFailed, "casclient: response post-processing rejected the assertion", err)
			}
			return Assertion{}, err
		}
	}

	logger.V(1).Info("ticket validated", "principal", assertion.Principal, "has_pgt", assertion.ProxyGrantingTicket != "")
	return assertion, nil
}
