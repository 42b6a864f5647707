// Package testsuite holds a reusable contract suite that every
// proxy.Storage adapter is expected to satisfy.
package testsuite

import (
	"context"
	"fmt"

	"github.com/porthorian/casclient/pkg/proxy"
)

type StorageSuite struct {
	Storage proxy.Storage
}

// Run exercises the Save/Retrieve/Delete contract against a live adapter.
func (s StorageSuite) Run(ctx context.Context) error {
	const (
		iou = "PGTIOU-suite-1"
		pgt = "PGT-suite-1"
	)

	if err := s.Storage.Save(ctx, iou, pgt); err != nil {
		return fmt.Errorf("save ticket: %w", err)
	}

	got, found, err := s.Storage.Retrieve(ctx, iou)
	if err != nil {
		return fmt.Errorf("retrieve ticket: %w", err)
	}
	if !found {
		return fmt.Errorf("retrieve ticket: saved iou %q not found", iou)
	}
	if got != pgt {
		return fmt.Errorf("retrieve ticket: got %q, want %q", got, pgt)
	}

	if err := s.Storage.Save(ctx, iou, "PGT-suite-2"); err != nil {
		return fmt.Errorf("overwrite ticket: %w", err)
	}
	got, found, err = s.Storage.Retrieve(ctx, iou)
	if err != nil {
		return fmt.Errorf("retrieve overwritten ticket: %w", err)
	}
	if !found || got != "PGT-suite-2" {
		return fmt.Errorf("retrieve overwritten ticket: got %q found=%v, want %q", got, found, "PGT-suite-2")
	}

	if err := s.Storage.Delete(ctx, iou); err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	_, found, err = s.Storage.Retrieve(ctx, iou)
	if err != nil {
		return fmt.Errorf("retrieve deleted ticket: %w", err)
	}
	if found {
		return fmt.Errorf("retrieve deleted ticket: iou %q still present", iou)
	}

	_, found, err = s.Storage.Retrieve(ctx, "PGTIOU-suite-missing")
	if err != nil {
		return fmt.Errorf("retrieve unknown ticket: %w", err)
	}
	if found {
		return fmt.Errorf("retrieve unknown ticket: unexpected hit")
	}

	return nil
}
