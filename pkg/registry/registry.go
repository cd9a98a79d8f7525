// Package registry holds the authoritative in-memory customer store. The
// workflow engine is its only writer; boundary collaborators read detached
// copies. Mutations for one customer serialize on a per-id lock, distinct
// customers never contend.
package registry

import (
	"errors"
	"sync"

	"github.com/journeykit/journey/pkg/models"
)

var (
	ErrCustomerNotFound      = errors.New("customer not found")
	ErrCustomerAlreadyExists = errors.New("customer already exists")
)

type entry struct {
	mu       sync.Mutex
	customer *models.Customer
}

type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ids     []string
}

func New() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

func (r *Registry) Create(customer *models.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[customer.ID]; exists {
		return ErrCustomerAlreadyExists
	}

	r.entries[customer.ID] = &entry{customer: customer.Clone()}
	r.ids = append(r.ids, customer.ID)

	return nil
}

// Get returns a deep copy of the customer, or false when the id is unknown.
func (r *Registry) Get(id string) (*models.Customer, bool) {
	r.mu.RLock()
	e, exists := r.entries[id]
	r.mu.RUnlock()

	if !exists {
		return nil, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.customer.Clone(), true
}

// List returns deep copies of all customers in insertion order.
func (r *Registry) List() []*models.Customer {
	r.mu.RLock()
	ids := make([]string, len(r.ids))
	copy(ids, r.ids)
	r.mu.RUnlock()

	customers := make([]*models.Customer, 0, len(ids))

	for _, id := range ids {
		if customer, ok := r.Get(id); ok {
			customers = append(customers, customer)
		}
	}

	return customers
}

// Update applies the mutator under the customer's critical section. The
// mutator receives the live entity; it must not retain it past the call.
func (r *Registry) Update(id string, mutate func(*models.Customer)) error {
	r.mu.RLock()
	e, exists := r.entries[id]
	r.mu.RUnlock()

	if !exists {
		return ErrCustomerNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	mutate(e.customer)

	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}
