package detail

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/dhruvkothari3/easy-claim-buddy/internal/models"
)

var ErrNotFound = errors.New("customer not found")

type Fetcher interface {
	GetCustomer(ctx context.Context, id, token string) (*models.Customer, error)
	GetCustomerPolicies(ctx context.Context, id, token string) (models.PolicyList, error)
}

type View struct {
	Customer models.Customer
	Plans    []models.Plan
}

// Load fetches the customer and their policies concurrently and returns
// only after both calls settle. The first failure cancels the other call.
func Load(ctx context.Context, fetcher Fetcher, id, token string) (View, error) {
	var (
		customer *models.Customer
		policies models.PolicyList
	)
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		customer, err = fetcher.GetCustomer(gctx, id, token)
		return err
	})
	group.Go(func() error {
		var err error
		policies, err = fetcher.GetCustomerPolicies(gctx, id, token)
		return err
	})
	if err := group.Wait(); err != nil {
		return View{}, err
	}
	if customer == nil {
		return View{}, ErrNotFound
	}
	return View{Customer: *customer, Plans: policies.Policies}, nil
}
