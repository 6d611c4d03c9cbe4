package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/models"

	"github.com/google/uuid"
)

type memoryState struct {
	mu       sync.Mutex
	users    map[string]models.User
	sellers  map[string]models.Seller
	products map[string]models.Product
	orders   map[string]models.Order
}

func (s *memoryState) snapshot() *memoryState {
	return &memoryState{
		users:    copyMap(s.users),
		sellers:  copyMap(s.sellers),
		products: copyMap(s.products),
		orders:   copyMap(s.orders),
	}
}

func (s *memoryState) restore(from *memoryState) {
	s.users = from.users
	s.sellers = from.sellers
	s.products = from.products
	s.orders = from.orders
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// MemoryStore is an in-memory implementation of Store. Transactions are
// serialized on a single mutex and roll back by restoring a snapshot.
type MemoryStore struct {
	state *memoryState
	inTx  bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memoryState{
		users:    make(map[string]models.User),
		sellers:  make(map[string]models.Seller),
		products: make(map[string]models.Product),
		orders:   make(map[string]models.Order),
	}}
}

// lock takes the store mutex unless the caller already holds it through
// Transaction.
func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.state.mu.Lock()
	return s.state.mu.Unlock
}

func (s *MemoryStore) Users() UserRepository       { return &memoryUserRepo{s} }
func (s *MemoryStore) Sellers() SellerRepository   { return &memorySellerRepo{s} }
func (s *MemoryStore) Products() ProductRepository { return &memoryProductRepo{s} }
func (s *MemoryStore) Orders() OrderRepository     { return &memoryOrderRepo{s} }

// Transaction implements Store.
func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	before := s.state.snapshot()
	if err := fn(&MemoryStore{state: s.state, inTx: true}); err != nil {
		s.state.restore(before)
		return err
	}
	return nil
}

type memoryUserRepo struct{ s *MemoryStore }

func (r *memoryUserRepo) Create(_ context.Context, user *models.User) error {
	defer r.s.lock()()
	for _, u := range r.s.state.users {
		if u.Username == user.Username || u.Email == user.Email {
			return fmt.Errorf("failed to create user: %w", ErrDuplicate)
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.state.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	defer r.s.lock()()
	for _, u := range r.s.state.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", username, ErrNotFound)
}

func (r *memoryUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	defer r.s.lock()()
	for _, u := range r.s.state.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
}

func (r *memoryUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	defer r.s.lock()()
	u, ok := r.s.state.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return &u, nil
}

type memorySellerRepo struct{ s *MemoryStore }

func (r *memorySellerRepo) GetAll(_ context.Context) ([]models.Seller, error) {
	defer r.s.lock()()
	out := make([]models.Seller, 0, len(r.s.state.sellers))
	for _, s := range r.s.state.sellers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memorySellerRepo) GetByID(_ context.Context, id string) (*models.Seller, error) {
	defer r.s.lock()()
	s, ok := r.s.state.sellers[id]
	if !ok {
		return nil, fmt.Errorf("seller with ID %s: %w", id, ErrNotFound)
	}
	return &s, nil
}

func (r *memorySellerRepo) GetByUserID(_ context.Context, userID string) (*models.Seller, error) {
	defer r.s.lock()()
	for _, s := range r.s.state.sellers {
		if s.UserID == userID {
			return &s, nil
		}
	}
	return nil, fmt.Errorf("seller of user %s: %w", userID, ErrNotFound)
}

func (r *memorySellerRepo) Create(_ context.Context, seller *models.Seller) error {
	defer r.s.lock()()
	for _, s := range r.s.state.sellers {
		if s.UserID == seller.UserID {
			return fmt.Errorf("failed to create seller: %w", ErrDuplicate)
		}
	}
	if seller.ID == "" {
		seller.ID = uuid.New().String()
	}
	now := time.Now()
	seller.CreatedAt, seller.UpdatedAt = now, now
	r.s.state.sellers[seller.ID] = *seller
	return nil
}

func (r *memorySellerRepo) Update(_ context.Context, seller *models.Seller) error {
	defer r.s.lock()()
	cur, ok := r.s.state.sellers[seller.ID]
	if !ok {
		return fmt.Errorf("seller with ID %s not found for update: %w", seller.ID, ErrNotFound)
	}
	cur.StoreName = seller.StoreName
	cur.Description = seller.Description
	cur.CommissionRate = seller.CommissionRate
	cur.IsApproved = seller.IsApproved
	cur.UpdatedAt = time.Now()
	r.s.state.sellers[seller.ID] = cur
	return nil
}

type memoryProductRepo struct{ s *MemoryStore }

func (r *memoryProductRepo) list(match func(models.Product) bool) []models.Product {
	out := make([]models.Product, 0, len(r.s.state.products))
	for _, p := range r.s.state.products {
		if match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *memoryProductRepo) GetAll(_ context.Context) ([]models.Product, error) {
	defer r.s.lock()()
	return r.list(func(models.Product) bool { return true }), nil
}

func (r *memoryProductRepo) ListBySeller(_ context.Context, sellerID string) ([]models.Product, error) {
	defer r.s.lock()()
	return r.list(func(p models.Product) bool { return p.SellerID == sellerID }), nil
}

func (r *memoryProductRepo) GetByID(_ context.Context, id string) (*models.Product, error) {
	defer r.s.lock()()
	p, ok := r.s.state.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

func (r *memoryProductRepo) Create(_ context.Context, product *models.Product) error {
	defer r.s.lock()()
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	now := time.Now()
	product.CreatedAt, product.UpdatedAt = now, now
	r.s.state.products[product.ID] = *product
	return nil
}

func (r *memoryProductRepo) Update(_ context.Context, product *models.Product, expectedStock *int) error {
	defer r.s.lock()()
	cur, ok := r.s.state.products[product.ID]
	if !ok {
		return fmt.Errorf("product with ID %s not found for update: %w", product.ID, ErrNotFound)
	}
	if expectedStock != nil {
		if cur.Stock != *expectedStock {
			return fmt.Errorf("stock of product %s: %w", product.ID, ErrStaleWrite)
		}
		cur.Stock = product.Stock
	}
	cur.Name = product.Name
	cur.Description = product.Description
	cur.Price = product.Price
	cur.UpdatedAt = time.Now()
	r.s.state.products[product.ID] = cur
	return nil
}

func (r *memoryProductRepo) Delete(_ context.Context, id string) error {
	defer r.s.lock()()
	if _, ok := r.s.state.products[id]; !ok {
		return fmt.Errorf("product with ID %s not found for deletion: %w", id, ErrNotFound)
	}
	delete(r.s.state.products, id)
	return nil
}

func (r *memoryProductRepo) DecrementStock(_ context.Context, id string, qty int) error {
	defer r.s.lock()()
	p, ok := r.s.state.products[id]
	if !ok {
		return fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	if p.Stock < qty {
		return fmt.Errorf("product with ID %s: %w", id, ErrInsufficientStock)
	}
	p.Stock -= qty
	r.s.state.products[id] = p
	return nil
}

type memoryOrderRepo struct{ s *MemoryStore }

func (r *memoryOrderRepo) List(_ context.Context, filter OrderFilter) ([]models.Order, error) {
	defer r.s.lock()()
	out := make([]models.Order, 0)
	for _, o := range r.s.state.orders {
		if filter.CustomerID != "" && o.CustomerID != filter.CustomerID {
			continue
		}
		if filter.SellerID != "" && o.SellerID != filter.SellerID {
			continue
		}
		if filter.GatewayOrderID != "" && o.GatewayOrderID != filter.GatewayOrderID {
			continue
		}
		if filter.PaymentID != "" && o.PaymentID != filter.PaymentID {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memoryOrderRepo) GetByID(_ context.Context, id string) (*models.Order, error) {
	defer r.s.lock()()
	o, ok := r.s.state.orders[id]
	if !ok {
		return nil, fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
	}
	return &o, nil
}

func (r *memoryOrderRepo) Create(_ context.Context, order *models.Order) error {
	defer r.s.lock()()
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if _, ok := r.s.state.orders[order.ID]; ok {
		return fmt.Errorf("failed to create order: %w", ErrDuplicate)
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}
	stored := *order
	stored.Products = append([]models.OrderItem(nil), order.Products...)
	r.s.state.orders[order.ID] = stored
	return nil
}

func (r *memoryOrderRepo) UpdateFields(_ context.Context, id string, update OrderUpdate) error {
	defer r.s.lock()()
	o, ok := r.s.state.orders[id]
	if !ok {
		return fmt.Errorf("order with ID %s not found for update: %w", id, ErrNotFound)
	}
	if update.IfPaymentStatus != nil && o.PaymentStatus != *update.IfPaymentStatus {
		return fmt.Errorf("payment status of order %s: %w", id, ErrStaleWrite)
	}
	if update.Status != nil {
		o.Status = *update.Status
	}
	if update.TrackingNumber != nil {
		o.TrackingNumber = *update.TrackingNumber
	}
	if update.PaymentStatus != nil {
		o.PaymentStatus = *update.PaymentStatus
	}
	if update.PaymentID != nil {
		o.PaymentID = *update.PaymentID
	}
	o.UpdatedAt = update.UpdatedAt
	r.s.state.orders[id] = o
	return nil
}
