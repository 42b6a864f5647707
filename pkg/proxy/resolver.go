package proxy

import (
	"context"
	"crypto"
	"crypto/rand"
	"encoding/base64"

	"github.com/go-logr/logr"
)

// Resolver turns the raw proxyGrantingTicket field from a validation
// response into the real PGT. Resolution failure is never fatal: every
// error path is logged and collapsed to the empty string so that an
// otherwise-successful ticket validation still succeeds.
type Resolver struct {
	storage   Storage
	decrypter crypto.Decrypter
	logger    logr.Logger
}

func NewResolver(storage Storage, decrypter crypto.Decrypter, logger logr.Logger) *Resolver {
	return &Resolver{
		storage:   storage,
		decrypter: decrypter,
		logger:    logger,
	}
}

func (r *Resolver) Resolve(ctx context.Context, field string) string {
	if r == nil {
		return ""
	}

	reference := ParseReference(field)
	switch reference.Kind {
	case ReferenceNone:
		return ""
	case ReferenceIOU:
		return r.resolveFromStorage(ctx, reference.Value)
	case ReferenceEncrypted:
		return r.resolveViaDecryption(reference.Value)
	}
	return ""
}

func (r *Resolver) resolveFromStorage(ctx context.Context, iou string) string {
	if r.storage == nil {
		return ""
	}

	pgt, ok, err := r.storage.Retrieve(ctx, iou)
	if err != nil {
		r.logger.Error(err, "unable to retrieve proxy granting ticket from storage")
		return ""
	}
	if !ok {
		r.logger.V(1).Info("no proxy granting ticket stored for IOU")
		return ""
	}
	return pgt
}

func (r *Resolver) resolveViaDecryption(encrypted string) string {
	if r.decrypter == nil {
		r.logger.V(1).Info("encrypted proxy granting ticket received but no private key is configured")
		return ""
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		r.logger.Error(err, "unable to decode encrypted proxy granting ticket")
		return ""
	}

	plaintext, err := r.decrypter.Decrypt(rand.Reader, ciphertext, nil)
	if err != nil {
		r.logger.Error(err, "unable to decrypt proxy granting ticket")
		return ""
	}

	pgt := string(plaintext)
	r.logger.V(1).Info("decrypted proxy granting ticket")
	return pgt
}
