package service

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/xue-yuan/dionysus/internal/domain"
	"github.com/xue-yuan/dionysus/internal/events"
)

type fakeUsers struct {
	mu     sync.Mutex
	byID   map[string]*domain.User
	err    error
	raceOn bool
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[string]*domain.User{}}
}

func (f *fakeUsers) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.raceOn {
		return &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}
	}
	user.ID = uuid.NewString()
	copied := *user
	f.byID[user.ID] = &copied
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeIngredients struct {
	nextID int64
	items  map[int64]domain.Ingredient
}

func newFakeIngredients() *fakeIngredients {
	return &fakeIngredients{items: map[int64]domain.Ingredient{}}
}

func (f *fakeIngredients) Create(_ context.Context, ing *domain.Ingredient) error {
	for _, existing := range f.items {
		if existing.Name == ing.Name {
			return &pgconn.PgError{Code: "23505", ConstraintName: "ingredients_name_key"}
		}
	}
	f.nextID++
	ing.ID = f.nextID
	f.items[ing.ID] = *ing
	return nil
}

func (f *fakeIngredients) Upsert(ctx context.Context, ing *domain.Ingredient) error {
	for id, existing := range f.items {
		if existing.Name == ing.Name {
			ing.ID = id
			f.items[id] = *ing
			return nil
		}
	}
	return f.Create(ctx, ing)
}

func (f *fakeIngredients) GetByID(_ context.Context, id int64) (*domain.Ingredient, error) {
	if ing, ok := f.items[id]; ok {
		return &ing, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeIngredients) GetByName(_ context.Context, name string) (*domain.Ingredient, error) {
	for _, ing := range f.items {
		if ing.Name == name {
			copied := ing
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeIngredients) List(context.Context) ([]domain.Ingredient, error) {
	out := make([]domain.Ingredient, 0, len(f.items))
	for _, ing := range f.items {
		out = append(out, ing)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeIngredients) UpdateName(_ context.Context, id int64, name string) error {
	ing, ok := f.items[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ing.Name = name
	f.items[id] = ing
	return nil
}

func (f *fakeIngredients) Delete(_ context.Context, id int64) error {
	if _, ok := f.items[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.items, id)
	return nil
}

type fakeCocktails struct {
	nextID int64
	items  map[int64]domain.Cocktail
	names  map[int64]string

	getCalls   int
	matchOwned []int64
	matchTags  []string
	matchLimit int
}

func newFakeCocktails() *fakeCocktails {
	return &fakeCocktails{items: map[int64]domain.Cocktail{}, names: map[int64]string{}}
}

func (f *fakeCocktails) Create(_ context.Context, c *domain.Cocktail) error {
	f.nextID++
	c.ID = f.nextID
	stored := *c
	for i := range stored.Ingredients {
		stored.Ingredients[i].Name = f.names[stored.Ingredients[i].IngredientID]
	}
	f.items[c.ID] = stored
	return nil
}

func (f *fakeCocktails) GetByID(_ context.Context, id int64) (*domain.Cocktail, error) {
	f.getCalls++
	if c, ok := f.items[id]; ok {
		return &c, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeCocktails) GetByName(_ context.Context, name string) (*domain.Cocktail, error) {
	for _, c := range f.items {
		if c.Name == name {
			copied := c
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeCocktails) List(_ context.Context, tag string) ([]domain.Cocktail, error) {
	out := []domain.Cocktail{}
	for _, c := range f.items {
		if tag == "" || contains(c.Tags, tag) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeCocktails) ListByIDs(_ context.Context, ids []int64) ([]domain.Cocktail, error) {
	out := []domain.Cocktail{}
	for _, id := range ids {
		if c, ok := f.items[id]; ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeCocktails) Match(_ context.Context, owned []int64, tags []string, maxMissing int) ([]domain.CocktailMatch, error) {
	f.matchOwned, f.matchTags, f.matchLimit = owned, tags, maxMissing
	have := map[int64]bool{}
	for _, id := range owned {
		have[id] = true
	}
	out := []domain.CocktailMatch{}
	for _, c := range f.items {
		if len(tags) > 0 && !containsAny(c.Tags, tags) {
			continue
		}
		m := domain.CocktailMatch{Cocktail: c, TotalCount: len(c.Ingredients), MissingIngredients: []string{}}
		for _, ing := range c.Ingredients {
			if have[ing.IngredientID] {
				m.OwnedCount++
				continue
			}
			m.MissingIngredients = append(m.MissingIngredients, ing.Name)
		}
		m.MissingCount = m.TotalCount - m.OwnedCount
		if m.TotalCount > 0 && m.MissingCount <= maxMissing {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MissingCount != out[j].MissingCount {
			return out[i].MissingCount < out[j].MissingCount
		}
		if out[i].OwnedCount != out[j].OwnedCount {
			return out[i].OwnedCount > out[j].OwnedCount
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (f *fakeCocktails) Update(_ context.Context, c *domain.Cocktail) error {
	if _, ok := f.items[c.ID]; !ok {
		return pgx.ErrNoRows
	}
	f.items[c.ID] = *c
	return nil
}

func (f *fakeCocktails) Delete(_ context.Context, id int64) error {
	if _, ok := f.items[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.items, id)
	return nil
}

type fakeTags struct {
	tags []domain.Tag
}

func (f *fakeTags) List(context.Context) ([]domain.Tag, error) {
	return f.tags, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, len(d.events))
	for i, e := range d.events {
		out[i] = e.Type
	}
	return out
}

func containsAny(values, wanted []string) bool {
	for _, w := range wanted {
		if contains(values, w) {
			return true
		}
	}
	return false
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
