package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/pkg/search"
)

type pair struct{ product, category string }

// memStore backs both product.Repository and product.CategoryLinker.
type memStore struct {
	mu         sync.Mutex
	products   map[string]model.Product
	categories map[string]model.Category
	catOrder   []string
	links      map[pair]model.ProductCategory
	clock      time.Time
}

func newMemStore() *memStore {
	return &memStore{
		products:   map[string]model.Product{},
		categories: map[string]model.Category{},
		links:      map[pair]model.ProductCategory{},
		clock:      time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) addCategory(id, name string, parentID *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[id] = model.Category{BaseModel: model.BaseModel{ID: id}, Name: name, Slug: strings.ToLower(name), ParentID: parentID}
	s.catOrder = append(s.catOrder, id)
}

// tick advances the fake clock so every link write gets its own timestamp.
func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

type memSnapshot struct {
	products map[string]model.Product
	links    map[pair]model.ProductCategory
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{products: map[string]model.Product{}, links: map[pair]model.ProductCategory{}}
	for k, v := range s.products {
		snap.products[k] = v
	}
	for k, v := range s.links {
		snap.links[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products, s.links = snap.products, snap.links
}

func (s *memStore) Create(_ context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.products {
		if existing.Name == p.Name {
			return apperror.DuplicateName(p.Name)
		}
	}
	stored := *p
	stored.Categories = nil
	s.products[p.ID] = stored
	return nil
}

func (s *memStore) FindByID(_ context.Context, id string) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *memStore) LockByID(ctx context.Context, id string) (*model.Product, error) {
	return s.FindByID(ctx, id)
}

func (s *memStore) Update(_ context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return apperror.NotFound("product", p.ID)
	}
	stored := *p
	stored.Categories = nil
	s.products[p.ID] = stored
	return nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return apperror.NotFound("product", id)
	}
	delete(s.products, id)
	for k := range s.links {
		if k.product == id {
			delete(s.links, k)
		}
	}
	return nil
}

func (s *memStore) SlugsWithPrefix(_ context.Context, base string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slugs := []string{}
	for _, p := range s.products {
		if p.Slug == base || strings.HasPrefix(p.Slug, base+"-") {
			slugs = append(slugs, p.Slug)
		}
	}
	return slugs, nil
}

func (s *memStore) ExistsName(_ context.Context, name, excludeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.products {
		if p.Name == name && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) FindCategories(_ context.Context, productID string) ([]model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var linked []model.ProductCategory
	for k, l := range s.links {
		if k.product == productID {
			linked = append(linked, l)
		}
	}
	sort.Slice(linked, func(i, j int) bool { return linked[i].CreatedAt.Before(linked[j].CreatedAt) })
	out := []model.Category{}
	for _, l := range linked {
		out = append(out, s.categories[l.CategoryID])
	}
	return out, nil
}

func (s *memStore) FindCategoryChildren(_ context.Context, parentIDs []string) ([]model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := map[string]bool{}
	for _, id := range parentIDs {
		wanted[id] = true
	}
	out := []model.Category{}
	for _, id := range s.catOrder {
		c := s.categories[id]
		if c.ParentID != nil && wanted[*c.ParentID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) FindIDsByCategories(_ context.Context, categoryIDs []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := map[string]bool{}
	for _, id := range categoryIDs {
		wanted[id] = true
	}
	seen := map[string]bool{}
	out := []string{}
	for k := range s.links {
		if wanted[k.category] && !seen[k.product] {
			seen[k.product] = true
			out = append(out, k.product)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *memStore) MissingCategoryIDs(_ context.Context, categoryIDs []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	missing := []string{}
	for _, id := range categoryIDs {
		if _, ok := s.categories[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (s *memStore) Attach(_ context.Context, productID string, categoryIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cid := range categoryIDs {
		k := pair{productID, cid}
		if _, ok := s.links[k]; ok {
			continue
		}
		now := s.tick()
		s.links[k] = model.ProductCategory{ProductID: productID, CategoryID: cid, CreatedAt: now, UpdatedAt: now}
	}
	return nil
}

func (s *memStore) Sync(ctx context.Context, productID string, categoryIDs []string) error {
	keep := map[string]bool{}
	for _, id := range categoryIDs {
		keep[id] = true
	}
	s.mu.Lock()
	for k := range s.links {
		if k.product == productID && !keep[k.category] {
			delete(s.links, k)
		}
	}
	s.mu.Unlock()
	return s.Attach(ctx, productID, categoryIDs)
}

func (s *memStore) link(productID, categoryID string) (model.ProductCategory, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[pair{productID, categoryID}]
	return l, ok
}

type memTx struct{ store *memStore }

func (t memTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := t.store.snapshot()
	if err := fn(ctx); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

// fakeIndex is a minimal Elasticsearch endpoint keeping indexed documents
// by path.
type fakeIndex struct {
	mu   sync.Mutex
	docs map[string]map[string]interface{}
}

func newFakeIndex(t *testing.T) (*fakeIndex, *search.Client) {
	t.Helper()
	f := &fakeIndex{docs: map[string]map[string]interface{}{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodPut, http.MethodPost:
			var doc map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&doc)
			f.docs[r.URL.Path] = doc
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"result":"created"}`))
		case http.MethodDelete:
			delete(f.docs, r.URL.Path)
			_, _ = w.Write([]byte(`{"result":"deleted"}`))
		default:
			_, _ = w.Write([]byte(`{"version":{"number":"8.19.0"},"tagline":"You Know, for Search"}`))
		}
	}))
	t.Cleanup(srv.Close)

	client, err := search.NewClient(&search.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return f, client
}

func (f *fakeIndex) doc(index, id string) (map[string]interface{}, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs["/"+index+"/_doc/"+id]
	return d, ok
}
