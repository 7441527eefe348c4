package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/event"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
)

// memRepo is an in-memory category.Repository. Rows keep an insertion
// sequence so children come back in creation order like the SQL version.
type memRepo struct {
	mu    sync.Mutex
	rows  map[string]model.Category
	seq   map[string]int
	next  int
	links map[string][]string // category id -> product ids

	// failCreate, when set, is consulted before every insert.
	failCreate func(c *model.Category) error
}

func newMemRepo() *memRepo {
	return &memRepo{
		rows:  map[string]model.Category{},
		seq:   map[string]int{},
		links: map[string][]string{},
	}
}

type memSnapshot struct {
	rows  map[string]model.Category
	seq   map[string]int
	next  int
	links map[string][]string
}

func (r *memRepo) snapshot() memSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := memSnapshot{rows: map[string]model.Category{}, seq: map[string]int{}, next: r.next, links: map[string][]string{}}
	for k, v := range r.rows {
		s.rows[k] = v
	}
	for k, v := range r.seq {
		s.seq[k] = v
	}
	for k, v := range r.links {
		s.links[k] = append([]string(nil), v...)
	}
	return s
}

func (r *memRepo) restore(s memSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows, r.seq, r.next, r.links = s.rows, s.seq, s.next, s.links
}

func (r *memRepo) Create(_ context.Context, c *model.Category) error {
	if r.failCreate != nil {
		if err := r.failCreate(c); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.Name == c.Name {
			return apperror.DuplicateName(c.Name)
		}
		if row.Slug == c.Slug {
			return apperror.New(apperror.KindDuplicateSlug, "slug %q has already been taken", c.Slug)
		}
	}
	stored := c.Summary()
	r.rows[c.ID] = stored
	r.seq[c.ID] = r.next
	r.next++
	return nil
}

func (r *memRepo) FindByID(_ context.Context, id string) (*model.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (r *memRepo) LockByID(ctx context.Context, id string) (*model.Category, error) {
	return r.FindByID(ctx, id)
}

func (r *memRepo) FindChildren(_ context.Context, parentID string) ([]model.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.childrenLocked(parentID), nil
}

func (r *memRepo) childrenLocked(parentID string) []model.Category {
	children := []model.Category{}
	for _, row := range r.rows {
		if row.ParentID != nil && *row.ParentID == parentID {
			children = append(children, row)
		}
	}
	sort.Slice(children, func(i, j int) bool { return r.seq[children[i].ID] < r.seq[children[j].ID] })
	return children
}

func (r *memRepo) FindDescendants(_ context.Context, id string) ([]model.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []model.Category{}
	frontier := []string{id}
	for depth := 0; len(frontier) > 0 && depth < 1000; depth++ {
		var next []string
		for _, pid := range frontier {
			for _, c := range r.childrenLocked(pid) {
				result = append(result, c)
				next = append(next, c.ID)
			}
		}
		frontier = next
	}
	return result, nil
}

func (r *memRepo) FindAll(_ context.Context) ([]model.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]model.Category, 0, len(r.rows))
	for _, row := range r.rows {
		all = append(all, row)
	}
	sort.Slice(all, func(i, j int) bool { return r.seq[all[i].ID] < r.seq[all[j].ID] })
	return all, nil
}

func (r *memRepo) Update(_ context.Context, c *model.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.rows[c.ID]
	if !ok {
		return apperror.NotFound("category", c.ID)
	}
	for id, row := range r.rows {
		if id != c.ID && row.Name == c.Name {
			return apperror.DuplicateName(c.Name)
		}
	}
	old.Name = c.Name
	old.ParentID = c.ParentID
	old.UpdatedAt = c.UpdatedAt
	r.rows[c.ID] = old
	return nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return apperror.NotFound("category", id)
	}
	doomed := []string{id}
	for i := 0; i < len(doomed); i++ {
		for _, c := range r.childrenLocked(doomed[i]) {
			doomed = append(doomed, c.ID)
		}
	}
	for _, d := range doomed {
		delete(r.rows, d)
		delete(r.seq, d)
		delete(r.links, d)
	}
	return nil
}

func (r *memRepo) ParentID(_ context.Context, id string) (*string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, apperror.NotFound("category", id)
	}
	return row.ParentID, nil
}

func (r *memRepo) FindSubtreeProductIDs(ctx context.Context, id string) ([]string, error) {
	descendants, _ := r.FindDescendants(ctx, id)
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]struct{}{}
	ids := []string{}
	for _, cid := range append([]string{id}, idsOf(descendants)...) {
		for _, pid := range r.links[cid] {
			if _, ok := seen[pid]; !ok {
				seen[pid] = struct{}{}
				ids = append(ids, pid)
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *memRepo) SlugsWithPrefix(_ context.Context, base string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	slugs := []string{}
	for _, row := range r.rows {
		if row.Slug == base || strings.HasPrefix(row.Slug, base+"-") {
			slugs = append(slugs, row.Slug)
		}
	}
	return slugs, nil
}

func (r *memRepo) ExistsName(_ context.Context, name, excludeID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, row := range r.rows {
		if row.Name == name && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) ExistsID(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rows[id]
	return ok, nil
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func (r *memRepo) byName(name string) *model.Category {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.Name == name {
			return &row
		}
	}
	return nil
}

// memTx restores the repository snapshot when fn fails.
type memTx struct {
	repo *memRepo
}

func (t memTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := t.repo.snapshot()
	if err := fn(ctx); err != nil {
		t.repo.restore(snap)
		return err
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.CategoryEvent
}

func (p *recordingPublisher) PublishCategoryEvent(_ context.Context, evt event.CategoryEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) ofType(eventType string) []event.CategoryEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []event.CategoryEvent
	for _, e := range p.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

func idsOf(categories []model.Category) []string {
	ids := make([]string, len(categories))
	for i, c := range categories {
		ids[i] = c.ID
	}
	return ids
}
