package memory

import (
	"context"
	"sync"

	"github.com/parkops/pricingservice/internal/pricing"
	"github.com/parkops/pricingservice/internal/repository"
)

// Store is an in-memory coupon repository and usage store
type Store struct {
	mu      sync.RWMutex
	coupons map[string]pricing.Coupon
	counts  map[string]int
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		coupons: make(map[string]pricing.Coupon),
		counts:  make(map[string]int),
	}
}

func (s *Store) Name() string { return "memory" }

// FindByCode returns a copy of the coupon with the live usage count
func (s *Store) FindByCode(_ context.Context, code string) (*pricing.Coupon, error) {
	key := repository.CouponKey(code)

	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.coupons[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if c.Usage != nil {
		usage := *c.Usage
		if n, seen := s.counts[key]; seen {
			usage.Count = n
		}
		c.Usage = &usage
	}
	return &c, nil
}

func (s *Store) Upsert(_ context.Context, coupon pricing.Coupon) error {
	key := repository.CouponKey(coupon.Code)

	s.mu.Lock()
	defer s.mu.Unlock()
	if coupon.Usage != nil {
		usage := *coupon.Usage
		coupon.Usage = &usage
		if n, seen := s.counts[key]; !seen || usage.Count > n {
			s.counts[key] = usage.Count
		}
	}
	s.coupons[key] = coupon
	return nil
}

func (s *Store) TryConsume(_ context.Context, coupon pricing.Coupon) (bool, error) {
	count, limit, limited := repository.SeedCount(coupon)
	if !limited {
		return true, nil
	}
	key := repository.CouponKey(coupon.Code)

	s.mu.Lock()
	defer s.mu.Unlock()
	if n, seen := s.counts[key]; seen {
		count = n
	}
	if count >= limit {
		return false, nil
	}
	s.counts[key] = count + 1
	return true, nil
}
