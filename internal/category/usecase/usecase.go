package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/category"
	"github.com/fekuna/omnipos-catalog-service/internal/category/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/category/tree"
	"github.com/fekuna/omnipos-catalog-service/internal/event"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/pkg/cache"
	"github.com/fekuna/omnipos-catalog-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/slug"
)

const (
	cachePattern  = "categories:*"
	getCacheKey   = "categories:get:%s"
	treeCacheKey  = "categories:tree"
	cacheTTL      = 5 * time.Minute
	treeLockKey   = "lock:category:tree"
	treeLockTTL   = 10 * time.Second
	lockAttempts  = 3
	lockRetryWait = 100 * time.Millisecond
)

type categoryUseCase struct {
	repo      category.Repository
	tx        category.Transactor
	cache     *cache.RedisClient
	publisher category.EventPublisher
	slugs     *slug.Generator
	validator *tree.Validator
	logger    logger.ZapLogger
}

// NewCategoryUseCase wires the category engine. redis and publisher are
// optional: without redis nothing is cached and reparenting is not
// serialized across instances, without a publisher no events are sent.
func NewCategoryUseCase(repo category.Repository, tx category.Transactor, redis *cache.RedisClient, publisher category.EventPublisher, log logger.ZapLogger) category.UseCase {
	return &categoryUseCase{
		repo:      repo,
		tx:        tx,
		cache:     redis,
		publisher: publisher,
		slugs:     slug.NewGenerator(repo, "category"),
		validator: tree.NewValidator(repo),
		logger:    log,
	}
}

func (uc *categoryUseCase) CreateCategoryTree(ctx context.Context, input *dto.CreateCategoryTreeInput) ([]model.Category, error) {
	name := strings.TrimSpace(input.Name)
	children := make([]string, 0, len(input.Subcategories))
	for _, sub := range input.Subcategories {
		sub = strings.TrimSpace(sub)
		if sub == "" {
			return nil, apperror.Validation("subcategory name must not be empty")
		}
		children = append(children, sub)
	}

	if name == "" && len(children) == 0 {
		return nil, apperror.New(apperror.KindEmptyInput, "provide a category name or subcategories")
	}
	if name == "" && input.ParentID == nil {
		return nil, apperror.New(apperror.KindMissingParent, "cannot create subcategories without a parent id")
	}

	seen := make(map[string]struct{}, len(children)+1)
	for _, n := range append([]string{name}, children...) {
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			return nil, apperror.DuplicateName(n)
		}
		seen[n] = struct{}{}
	}

	var created []model.Category
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		created = nil

		parentID := input.ParentID
		if parentID != nil {
			exists, err := uc.repo.ExistsID(ctx, *parentID)
			if err != nil {
				return err
			}
			if !exists {
				return apperror.NotFound("category", *parentID)
			}
		}

		if name != "" {
			parent, err := uc.insert(ctx, name, parentID)
			if err != nil {
				return err
			}
			created = append(created, *parent)
			parentID = &parent.ID
		}

		for _, child := range children {
			c, err := uc.insert(ctx, child, parentID)
			if err != nil {
				return err
			}
			created = append(created, *c)
		}

		for i := range created {
			if err := uc.loadRelations(ctx, &created[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, uc.fail("create category tree", err)
	}

	ids := make([]string, len(created))
	for i, c := range created {
		ids[i] = c.ID
	}
	uc.invalidateCache(ctx)
	go uc.publish(event.NewCategoryEvent(event.TypeCategoriesCreated, ids, nil).WithParents(input.ParentID))

	return created, nil
}

func (uc *categoryUseCase) GetCategory(ctx context.Context, id string) (*model.Category, error) {
	key := fmt.Sprintf(getCacheKey, id)
	var cached model.Category
	if uc.readCache(ctx, key, &cached) {
		return &cached, nil
	}

	c, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, uc.fail("get category", err)
	}
	if c == nil {
		return nil, apperror.NotFound("category", id)
	}
	if err := uc.loadRelations(ctx, c); err != nil {
		return nil, uc.fail("get category", err)
	}

	uc.writeCache(ctx, key, c)
	return c, nil
}

func (uc *categoryUseCase) ListCategoryTree(ctx context.Context) ([]model.Category, error) {
	var cached []model.Category
	if uc.readCache(ctx, treeCacheKey, &cached) {
		return cached, nil
	}

	all, err := uc.repo.FindAll(ctx)
	if err != nil {
		return nil, uc.fail("list category tree", err)
	}
	forest := tree.Build(all, nil)

	uc.writeCache(ctx, treeCacheKey, forest)
	return forest, nil
}

func (uc *categoryUseCase) UpdateCategoryTree(ctx context.Context, input *dto.UpdateCategoryTreeInput) ([]model.Category, error) {
	var newName string
	if input.Name != nil {
		newName = strings.TrimSpace(*input.Name)
		if newName == "" {
			return nil, apperror.Validation("name must not be empty")
		}
	}

	if input.ParentID.Set {
		release, err := uc.lockTree(ctx)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	var touched []model.Category
	var oldParentID *string
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		touched = nil

		node, err := uc.repo.LockByID(ctx, input.ID)
		if err != nil {
			return err
		}
		if node == nil {
			return apperror.NotFound("category", input.ID)
		}

		parentID := node.ParentID
		if input.ParentID.Set {
			parentID = input.ParentID.Value
		}
		if parentID != nil && *parentID == node.ID {
			return apperror.New(apperror.KindSelfParent, "a category cannot be its own parent")
		}
		cyclic, err := uc.validator.WouldCreateCycle(ctx, node.ID, parentID)
		if err != nil {
			return err
		}
		if cyclic {
			return apperror.New(apperror.KindCyclicParent, "cannot assign a descendant category as parent")
		}

		now := time.Now().UTC()
		if input.Name != nil && newName != node.Name {
			if err := uc.ensureNameFree(ctx, newName, node.ID); err != nil {
				return err
			}
			node.Name = newName
		}
		oldParentID = node.ParentID
		node.ParentID = parentID
		node.UpdatedAt = now
		if err := uc.repo.Update(ctx, node); err != nil {
			return err
		}
		touched = append(touched, *node)

		index := map[string]int{node.ID: 0}
		for _, sub := range input.Subcategories {
			name := strings.TrimSpace(sub.Name)

			if sub.ID == "" {
				if name == "" {
					return apperror.Validation("subcategory name must not be empty")
				}
				child, err := uc.insert(ctx, name, &node.ID)
				if err != nil {
					return err
				}
				index[child.ID] = len(touched)
				touched = append(touched, *child)
				continue
			}

			child, err := uc.repo.FindByID(ctx, sub.ID)
			if err != nil {
				return err
			}
			if child == nil || child.ParentID == nil || *child.ParentID != node.ID {
				// Not a current child: nothing to rename.
				continue
			}
			if name != "" && name != child.Name {
				if err := uc.ensureNameFree(ctx, name, child.ID); err != nil {
					return err
				}
				child.Name = name
				child.UpdatedAt = now
				if err := uc.repo.Update(ctx, child); err != nil {
					return err
				}
			}

			if i, ok := index[child.ID]; ok {
				touched[i] = *child
				continue
			}
			index[child.ID] = len(touched)
			touched = append(touched, *child)
		}

		for i := range touched {
			if err := uc.loadRelations(ctx, &touched[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, uc.fail("update category tree", err)
	}

	ids := make([]string, len(touched))
	for i, c := range touched {
		ids[i] = c.ID
	}
	uc.invalidateCache(ctx)
	go uc.publish(event.NewCategoryEvent(event.TypeCategoryUpdated, ids, nil).WithParents(oldParentID, touched[0].ParentID))

	return touched, nil
}

func (uc *categoryUseCase) DeleteCategory(ctx context.Context, id string) (*model.Category, error) {
	var snapshot *model.Category
	var ids, productIDs []string
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		node, err := uc.repo.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if node == nil {
			return apperror.NotFound("category", id)
		}
		if err := uc.loadParent(ctx, node); err != nil {
			return err
		}
		children, err := uc.repo.FindChildren(ctx, id)
		if err != nil {
			return err
		}
		for i := range children {
			children[i].Children = []model.Category{}
		}
		node.Children = children

		// The snapshot stops at the children; the event names every removed node.
		descendants, err := uc.repo.FindDescendants(ctx, id)
		if err != nil {
			return err
		}
		ids = append(ids, id)
		for _, d := range descendants {
			ids = append(ids, d.ID)
		}
		if productIDs, err = uc.repo.FindSubtreeProductIDs(ctx, id); err != nil {
			return err
		}
		if err := uc.repo.Delete(ctx, id); err != nil {
			return err
		}
		snapshot = node
		return nil
	})
	if err != nil {
		return nil, uc.fail("delete category", err)
	}

	uc.invalidateCache(ctx)
	go uc.publish(event.NewCategoryEvent(event.TypeCategoryDeleted, ids, productIDs).WithParents(snapshot.ParentID))

	return snapshot, nil
}

func (uc *categoryUseCase) insert(ctx context.Context, name string, parentID *string) (*model.Category, error) {
	if err := uc.ensureNameFree(ctx, name, ""); err != nil {
		return nil, err
	}
	s, err := uc.slugs.Generate(ctx, name)
	if err != nil {
		return nil, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	c := &model.Category{
		BaseModel: model.BaseModel{ID: id.String(), CreatedAt: now, UpdatedAt: now},
		Name:      name,
		Slug:      s,
		ParentID:  parentID,
	}
	if err := uc.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ensureNameFree is a fast path only; the unique constraint decides.
func (uc *categoryUseCase) ensureNameFree(ctx context.Context, name, excludeID string) error {
	exists, err := uc.repo.ExistsName(ctx, name, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return apperror.DuplicateName(name)
	}
	return nil
}

// loadRelations fills Parent (without its own relations) and the full
// Children subtree of c.
func (uc *categoryUseCase) loadRelations(ctx context.Context, c *model.Category) error {
	if err := uc.loadParent(ctx, c); err != nil {
		return err
	}
	descendants, err := uc.repo.FindDescendants(ctx, c.ID)
	if err != nil {
		return err
	}
	c.Children = tree.Build(descendants, &c.ID)
	return nil
}

func (uc *categoryUseCase) loadParent(ctx context.Context, c *model.Category) error {
	c.Parent = nil
	if c.IsRoot() {
		return nil
	}
	parent, err := uc.repo.FindByID(ctx, *c.ParentID)
	if err != nil {
		return err
	}
	if parent != nil {
		summary := parent.Summary()
		c.Parent = &summary
	}
	return nil
}

// lockTree serializes parent changes across instances. The returned func
// releases the lock.
func (uc *categoryUseCase) lockTree(ctx context.Context) (func(), error) {
	if uc.cache == nil {
		return func() {}, nil
	}

	token := uuid.NewString()
	acquired := false
	for i := 0; i < lockAttempts; i++ {
		ok, err := uc.cache.AcquireLock(ctx, treeLockKey, token, treeLockTTL)
		if err != nil {
			uc.logger.Error("failed to acquire category tree lock", zap.Error(err))
		}
		if ok {
			acquired = true
			break
		}
		time.Sleep(lockRetryWait)
	}
	if !acquired {
		return nil, apperror.New(apperror.KindStoreFailure, "category tree is busy, please try again later")
	}

	return func() {
		if err := uc.cache.ReleaseLock(context.Background(), treeLockKey, token); err != nil {
			uc.logger.Warn("failed to release category tree lock", zap.Error(err))
		}
	}, nil
}

func (uc *categoryUseCase) readCache(ctx context.Context, key string, dest interface{}) bool {
	if uc.cache == nil {
		return false
	}
	err := uc.cache.GetJSON(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, cache.ErrMiss) {
		uc.logger.Warn("category cache read failed", zap.String("key", key), zap.Error(err))
	}
	return false
}

func (uc *categoryUseCase) writeCache(ctx context.Context, key string, value interface{}) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.SetJSON(ctx, key, value, cacheTTL); err != nil {
		uc.logger.Warn("category cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (uc *categoryUseCase) invalidateCache(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.DeleteByPattern(ctx, cachePattern); err != nil {
		uc.logger.Warn("failed to invalidate category cache", zap.Error(err))
	}
}

func (uc *categoryUseCase) publish(evt event.CategoryEvent) {
	if uc.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := uc.publisher.PublishCategoryEvent(ctx, evt); err != nil {
		uc.logger.Error("failed to publish category event",
			zap.String("event_type", evt.EventType),
			zap.Strings("category_ids", evt.CategoryIDs),
			zap.Error(err),
		)
	}
}

// fail classifies err and logs it when it is not a caller error.
func (uc *categoryUseCase) fail(op string, err error) error {
	err = apperror.FromStore(op, err)
	if apperror.KindOf(err) == apperror.KindStoreFailure {
		uc.logger.Error(op+" failed", zap.Error(err))
	}
	return err
}
