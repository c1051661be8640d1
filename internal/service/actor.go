package service

import (
	"context"
	"errors"
	"math"

	"github.com/jakecourtright/HayFlow/internal/auth"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"gorm.io/gorm"
)

// requireActor returns the caller, failing before any datastore access when there is
// no identity or no active organization
func requireActor(ctx context.Context) (*auth.UserContext, error) {
	user, ok := auth.FromContext(ctx)
	if !ok || user.UserID == "" || !user.HasOrg() {
		return nil, ErrUnauthorized
	}
	return user, nil
}

// requirePermission returns the caller when they hold every listed permission
func requirePermission(ctx context.Context, perms ...domain.PermissionType) (*auth.UserContext, error) {
	user, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range perms {
		if !user.HasPermission(p) {
			return nil, forbidden(p)
		}
	}
	return user, nil
}

// notFound converts gorm's not-found error into the given service error
func notFound(err error, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}

func validQuantity(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

func validPrice(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
