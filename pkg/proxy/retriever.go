package proxy

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-logr/logr"
	oerrors "github.com/porthorian/casclient/pkg/errors"
	"github.com/porthorian/casclient/pkg/response"
)

// Retriever exchanges a proxy-granting ticket for a proxy ticket scoped
// to a target service, using the CAS server's proxy endpoint.
type Retriever struct {
	serverURLPrefix string
	client          *http.Client
	logger          logr.Logger
}

func NewRetriever(serverURLPrefix string, client *http.Client, logger logr.Logger) *Retriever {
	if client == nil {
		client = http.DefaultClient
	}
	return &Retriever{
		serverURLPrefix: strings.TrimRight(serverURLPrefix, "/"),
		client:          client,
		logger:          logger,
	}
}

func (r *Retriever) RetrieveProxyTicket(ctx context.Context, pgt string, targetService string) (string, error) {
	if pgt == "" {
		return "", oerrors.New(oerrors.CodeInvalidTicket, "casclient: proxy granting ticket is required")
	}

	query := url.Values{}
	query.Set("pgt", pgt)
	query.Set("targetService", targetService)
	endpoint := r.serverURLPrefix + "/proxy?" + query.Encode()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", oerrors.Wrap(oerrors.CodeTransport, "casclient: unable to build proxy request", err)
	}

	resp, err := r.client.Do(request)
	if err != nil {
		return "", oerrors.Wrap(oerrors.CodeTransport, "casclient: proxy request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", oerrors.Wrap(oerrors.CodeTransport, "casclient: unable to read proxy response", err)
	}

	ticket := strings.TrimSpace(response.TextForElement(string(body), "proxyTicket"))
	if ticket == "" {
		failure := strings.TrimSpace(response.TextForElement(string(body), "proxyFailure"))
		if failure == "" {
			failure = "no proxy ticket in response"
		}
		return "", oerrors.New(oerrors.CodeAuthenticationFailed, "casclient: "+failure)
	}

	r.logger.V(1).Info("retrieved proxy ticket", "target_service", targetService)
	return ticket, nil
}
