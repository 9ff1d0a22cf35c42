package catalog

import (
	"context"
	"strings"

	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
)

// Checker answers whether variants and stock locations exist in the product catalog.
type Checker interface {
	VariantExists(ctx context.Context, variantID string) (bool, error)
	LocationExists(ctx context.Context, locationID string) (bool, error)
}

type allowAll struct{}

// NewAllowAll returns a Checker that accepts any non-empty id.
func NewAllowAll() Checker {
	return allowAll{}
}

func (allowAll) VariantExists(_ context.Context, variantID string) (bool, error) {
	return strings.TrimSpace(variantID) != "", nil
}

func (allowAll) LocationExists(_ context.Context, locationID string) (bool, error) {
	return strings.TrimSpace(locationID) != "", nil
}

// Require fails with NotFound when the variant or any of the locations is unknown.
func Require(ctx context.Context, c Checker, variantID string, locationIDs ...string) error {
	if c == nil {
		return nil
	}
	ok, err := c.VariantExists(ctx, variantID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.NotFound("product variant", variantID)
	}
	for _, id := range locationIDs {
		ok, err := c.LocationExists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.NotFound("stock location", id)
		}
	}
	return nil
}
