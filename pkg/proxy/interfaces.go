package proxy

import "context"

// Storage associates a PGT-IOU receipt with the real proxy-granting
// ticket delivered by the CAS server to the proxy callback. Lifecycle and
// consistency of the mapping are owned by the implementation; validation
// only ever calls Retrieve.
type Storage interface {
	// Save records the IOU to PGT association.
	Save(ctx context.Context, iou string, pgt string) error

	// Retrieve returns the PGT for an IOU, reporting whether the mapping
	// exists.
	Retrieve(ctx context.Context, iou string) (string, bool, error)

	// Delete removes the association for an IOU.
	Delete(ctx context.Context, iou string) error
}
