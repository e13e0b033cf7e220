package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/auth"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

// =========================================================================
// FAKE STORE
// =========================================================================
//
// fakeStore is one in-memory implementation of every repository interface.
// It mirrors the constraints the SQLite schema enforces (unique pairs, the
// self-subscription CHECK, immutable short codes) so service tests exercise
// the same error paths production does.

type pair struct{ a, b int64 }

type fakeRecipe struct {
	recipe model.Recipe
	tagIDs []int64
	items  []model.IngredientAmount
}

type fakeStore struct {
	mu sync.Mutex

	users       map[int64]*model.User
	tokens      map[string]model.AuthToken
	tags        map[int64]model.Tag
	ingredients map[int64]model.Ingredient
	recipes     map[int64]*fakeRecipe
	collections map[model.Collection]map[pair]int64 // value orders insertion
	subs        map[pair]int64

	seq int64

	// taken forces ShortCodeTaken to report these codes as used.
	taken map[string]bool
	// createErr, when set, is returned by the next CreateRecipe call.
	createErr error
}

var (
	_ repository.UserRepository         = (*fakeStore)(nil)
	_ repository.TokenRepository        = (*fakeStore)(nil)
	_ repository.TagRepository          = (*fakeStore)(nil)
	_ repository.IngredientRepository   = (*fakeStore)(nil)
	_ repository.RecipeRepository       = (*fakeStore)(nil)
	_ repository.CollectionRepository   = (*fakeStore)(nil)
	_ repository.SubscriptionRepository = (*fakeStore)(nil)
)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       map[int64]*model.User{},
		tokens:      map[string]model.AuthToken{},
		tags:        map[int64]model.Tag{},
		ingredients: map[int64]model.Ingredient{},
		recipes:     map[int64]*fakeRecipe{},
		collections: map[model.Collection]map[pair]int64{
			model.Favorites:    {},
			model.ShoppingCart: {},
		},
		subs:  map[pair]int64{},
		taken: map[string]bool{},
	}
}

func (f *fakeStore) next() int64 {
	f.seq++
	return f.seq
}

// --- users ---

func (f *fakeStore) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, user.Email) {
			return apperror.ValidationFailed("email", "a user with this email already exists")
		}
		if u.Username == user.Username {
			return apperror.ValidationFailed("username", "a user with this username already exists")
		}
	}
	user.ID = f.next()
	user.CreatedAt = time.Now().UTC()
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", fmt.Sprint(id))
	}
	result := *u
	return &result, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeStore) GetUserByGitHubID(_ context.Context, githubID int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.GitHubID != nil && *u.GitHubID == githubID {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", fmt.Sprintf("github:%d", githubID))
}

func (f *fakeStore) UsernameTaken(_ context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) LinkGitHub(_ context.Context, userID, githubID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("user", fmt.Sprint(userID))
	}
	u.GitHubID = &githubID
	return nil
}

func (f *fakeStore) UpdatePassword(_ context.Context, userID int64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("user", fmt.Sprint(userID))
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeStore) UpdateAvatar(_ context.Context, userID int64, avatar string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("user", fmt.Sprint(userID))
	}
	u.Avatar = avatar
	return nil
}

func (f *fakeStore) profile(viewerID int64, u *model.User) model.Profile {
	_, subscribed := f.subs[pair{viewerID, u.ID}]
	return model.Profile{User: *u, IsSubscribed: subscribed}
}

func (f *fakeStore) GetProfile(_ context.Context, viewerID, id int64) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", fmt.Sprint(id))
	}
	p := f.profile(viewerID, u)
	return &p, nil
}

func (f *fakeStore) ListProfiles(_ context.Context, viewerID int64, opts repository.ListOptions) ([]model.Profile, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]model.Profile, 0, len(f.users))
	for _, u := range f.users {
		all = append(all, f.profile(viewerID, u))
	}
	slices.SortFunc(all, func(a, b model.Profile) int { return strings.Compare(a.Username, b.Username) })
	return page(all, opts), len(all), nil
}

// --- tokens ---

func (f *fakeStore) CreateToken(_ context.Context, token *model.AuthToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token.ID] = *token
	return nil
}

func (f *fakeStore) TokenActive(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[id]
	return ok && t.ExpiresAt.After(time.Now()), nil
}

func (f *fakeStore) DeleteToken(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, id)
	return nil
}

// --- tags and ingredients ---

func (f *fakeStore) ListTags(_ context.Context) ([]model.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tags := make([]model.Tag, 0, len(f.tags))
	for _, t := range f.tags {
		tags = append(tags, t)
	}
	slices.SortFunc(tags, func(a, b model.Tag) int { return strings.Compare(a.Name, b.Name) })
	return tags, nil
}

func (f *fakeStore) GetTag(_ context.Context, id int64) (*model.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tags[id]
	if !ok {
		return nil, apperror.NotFound("tag", fmt.Sprint(id))
	}
	return &t, nil
}

func (f *fakeStore) FindTags(_ context.Context, ids []int64) ([]model.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var found []model.Tag
	for _, id := range ids {
		if t, ok := f.tags[id]; ok {
			found = append(found, t)
		}
	}
	return found, nil
}

func (f *fakeStore) ImportTags(_ context.Context, tags []model.Tag) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range tags {
		dup := false
		for _, existing := range f.tags {
			if existing.Name == t.Name || existing.Slug == t.Slug {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		t.ID = f.next()
		f.tags[t.ID] = t
		n++
	}
	return n, nil
}

func (f *fakeStore) SearchIngredients(_ context.Context, query string) ([]model.Ingredient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := strings.ToLower(query)
	var prefix, contains []model.Ingredient
	for _, ing := range f.ingredients {
		name := strings.ToLower(ing.Name)
		switch {
		case strings.HasPrefix(name, q):
			prefix = append(prefix, ing)
		case strings.Contains(name, q):
			contains = append(contains, ing)
		}
	}
	byName := func(a, b model.Ingredient) int { return strings.Compare(a.Name, b.Name) }
	slices.SortFunc(prefix, byName)
	slices.SortFunc(contains, byName)
	return append(prefix, contains...), nil
}

func (f *fakeStore) GetIngredient(_ context.Context, id int64) (*model.Ingredient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ing, ok := f.ingredients[id]
	if !ok {
		return nil, apperror.NotFound("ingredient", fmt.Sprint(id))
	}
	return &ing, nil
}

func (f *fakeStore) FindIngredients(_ context.Context, ids []int64) ([]model.Ingredient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var found []model.Ingredient
	for _, id := range ids {
		if ing, ok := f.ingredients[id]; ok {
			found = append(found, ing)
		}
	}
	return found, nil
}

func (f *fakeStore) ImportIngredients(_ context.Context, ingredients []model.Ingredient) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
outer:
	for _, ing := range ingredients {
		for _, existing := range f.ingredients {
			if existing.Name == ing.Name && existing.MeasurementUnit == ing.MeasurementUnit {
				continue outer
			}
		}
		ing.ID = f.next()
		f.ingredients[ing.ID] = ing
		n++
	}
	return n, nil
}

func (f *fakeStore) DeleteIngredient(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.recipes {
		for _, item := range r.items {
			if item.IngredientID == id {
				return apperror.Conflict("ingredient", fmt.Sprint(id))
			}
		}
	}
	delete(f.ingredients, id)
	return nil
}

// --- recipes ---

func (f *fakeStore) CreateRecipe(_ context.Context, recipe *model.Recipe, tagIDs []int64, items []model.IngredientAmount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.createErr; err != nil {
		f.createErr = nil
		return err
	}
	if recipe.ShortCode != "" {
		for _, r := range f.recipes {
			if r.recipe.ShortCode == recipe.ShortCode {
				return apperror.Conflict("short code", recipe.ShortCode)
			}
		}
	}
	recipe.ID = f.next()
	recipe.PubDate = time.Now().UTC()
	f.recipes[recipe.ID] = &fakeRecipe{
		recipe: *recipe,
		tagIDs: slices.Clone(tagIDs),
		items:  slices.Clone(items),
	}
	return nil
}

func (f *fakeStore) UpdateRecipe(_ context.Context, recipe *model.Recipe, tagIDs []int64, items []model.IngredientAmount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.recipes[recipe.ID]
	if !ok {
		return apperror.NotFound("recipe", fmt.Sprint(recipe.ID))
	}
	r.recipe.Name = recipe.Name
	r.recipe.Image = recipe.Image
	r.recipe.Text = recipe.Text
	r.recipe.CookingTime = recipe.CookingTime
	if tagIDs != nil {
		r.tagIDs = slices.Clone(tagIDs)
	}
	if items != nil {
		r.items = slices.Clone(items)
	}
	return nil
}

func (f *fakeStore) DeleteRecipe(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.recipes[id]; !ok {
		return apperror.NotFound("recipe", fmt.Sprint(id))
	}
	delete(f.recipes, id)
	for _, set := range f.collections {
		for p := range set {
			if p.b == id {
				delete(set, p)
			}
		}
	}
	return nil
}

func (f *fakeStore) readShape(viewerID int64, r *fakeRecipe) model.Recipe {
	out := r.recipe
	if u, ok := f.users[out.AuthorID]; ok {
		out.Author = f.profile(viewerID, u)
	}
	out.Tags = nil
	for _, id := range r.tagIDs {
		out.Tags = append(out.Tags, f.tags[id])
	}
	out.Ingredients = nil
	for _, item := range r.items {
		ing := f.ingredients[item.IngredientID]
		out.Ingredients = append(out.Ingredients, model.RecipeIngredient{
			ID:              ing.ID,
			Name:            ing.Name,
			MeasurementUnit: ing.MeasurementUnit,
			Amount:          item.Amount,
		})
	}
	_, out.IsFavorited = f.collections[model.Favorites][pair{viewerID, out.ID}]
	_, out.IsInShoppingCart = f.collections[model.ShoppingCart][pair{viewerID, out.ID}]
	return out
}

func (f *fakeStore) GetRecipe(_ context.Context, viewerID, id int64) (*model.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.recipes[id]
	if !ok {
		return nil, apperror.NotFound("recipe", fmt.Sprint(id))
	}
	out := f.readShape(viewerID, r)
	return &out, nil
}

func (f *fakeStore) ListRecipes(_ context.Context, filter repository.RecipeFilter, opts repository.ListOptions) ([]model.Recipe, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []model.Recipe
	for _, r := range f.recipes {
		if filter.AuthorID != 0 && r.recipe.AuthorID != filter.AuthorID {
			continue
		}
		if len(filter.TagSlugs) > 0 && !slices.ContainsFunc(r.tagIDs, func(id int64) bool {
			return slices.Contains(filter.TagSlugs, f.tags[id].Slug)
		}) {
			continue
		}
		if filter.FavoritedBy != 0 {
			if _, ok := f.collections[model.Favorites][pair{filter.FavoritedBy, r.recipe.ID}]; !ok {
				continue
			}
		}
		if filter.InCartOf != 0 {
			if _, ok := f.collections[model.ShoppingCart][pair{filter.InCartOf, r.recipe.ID}]; !ok {
				continue
			}
		}
		all = append(all, f.readShape(filter.Viewer, r))
	}
	slices.SortFunc(all, func(a, b model.Recipe) int { return int(b.ID - a.ID) })
	return page(all, opts), len(all), nil
}

func (f *fakeStore) GetRecipeSummary(_ context.Context, id int64) (*model.RecipeSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.recipes[id]
	if !ok {
		return nil, apperror.NotFound("recipe", fmt.Sprint(id))
	}
	return &model.RecipeSummary{
		ID:          r.recipe.ID,
		AuthorID:    r.recipe.AuthorID,
		Name:        r.recipe.Name,
		Image:       r.recipe.Image,
		CookingTime: r.recipe.CookingTime,
	}, nil
}

func (f *fakeStore) ListAuthorRecipes(ctx context.Context, authorID int64, limit int) ([]model.RecipeSummary, error) {
	recipes, _, _ := f.ListRecipes(ctx, repository.RecipeFilter{AuthorID: authorID}, repository.ListOptions{Limit: 1 << 30})
	if limit > 0 && len(recipes) > limit {
		recipes = recipes[:limit]
	}
	out := make([]model.RecipeSummary, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, model.RecipeSummary{ID: r.ID, AuthorID: r.AuthorID, Name: r.Name, Image: r.Image, CookingTime: r.CookingTime})
	}
	return out, nil
}

func (f *fakeStore) ShortCodeTaken(_ context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.taken[code] {
		return true, nil
	}
	for _, r := range f.recipes {
		if r.recipe.ShortCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) SetShortCode(_ context.Context, id int64, code string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.recipes[id]
	if !ok {
		return "", apperror.NotFound("recipe", fmt.Sprint(id))
	}
	if r.recipe.ShortCode == "" {
		r.recipe.ShortCode = code
	}
	return r.recipe.ShortCode, nil
}

func (f *fakeStore) FindRecipeIDByShortCode(_ context.Context, code string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, r := range f.recipes {
		if r.recipe.ShortCode == code {
			return id, nil
		}
	}
	return 0, apperror.NotFound("recipe", code)
}

// --- collections ---

func (f *fakeStore) AddToCollection(_ context.Context, c model.Collection, userID, recipeID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.collections[c]
	if !ok {
		return fmt.Errorf("unknown collection %q", c)
	}
	if _, ok := f.recipes[recipeID]; !ok {
		return apperror.NotFound("recipe", fmt.Sprint(recipeID))
	}
	if _, dup := set[pair{userID, recipeID}]; dup {
		return apperror.AlreadyExists(fmt.Sprintf("recipe %d is already in %s", recipeID, c))
	}
	set[pair{userID, recipeID}] = f.next()
	return nil
}

func (f *fakeStore) RemoveFromCollection(_ context.Context, c model.Collection, userID, recipeID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := f.collections[c]
	if _, ok := set[pair{userID, recipeID}]; !ok {
		return apperror.NotPresent(fmt.Sprintf("recipe %d is not in %s", recipeID, c))
	}
	delete(set, pair{userID, recipeID})
	return nil
}

func (f *fakeStore) CountInCollection(_ context.Context, c model.Collection, userID, recipeID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.collections[c][pair{userID, recipeID}]; ok {
		return 1, nil
	}
	return 0, nil
}

func (f *fakeStore) ShoppingItems(_ context.Context, userID int64) ([]model.ShoppingItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []model.ShoppingItem
	for p := range f.collections[model.ShoppingCart] {
		if p.a != userID {
			continue
		}
		for _, item := range f.recipes[p.b].items {
			ing := f.ingredients[item.IngredientID]
			items = append(items, model.ShoppingItem{
				Name:            ing.Name,
				MeasurementUnit: ing.MeasurementUnit,
				Amount:          item.Amount,
			})
		}
	}
	return items, nil
}

// --- subscriptions ---

func (f *fakeStore) Subscribe(_ context.Context, userID, authorID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if userID == authorID {
		return apperror.ValidationFailed("author", "you cannot subscribe to yourself")
	}
	if _, ok := f.users[authorID]; !ok {
		return apperror.NotFound("user", fmt.Sprint(authorID))
	}
	if _, dup := f.subs[pair{userID, authorID}]; dup {
		return apperror.AlreadyExists(fmt.Sprintf("already subscribed to user %d", authorID))
	}
	f.subs[pair{userID, authorID}] = f.next()
	return nil
}

func (f *fakeStore) Unsubscribe(_ context.Context, userID, authorID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[pair{userID, authorID}]; !ok {
		return apperror.NotPresent(fmt.Sprintf("not subscribed to user %d", authorID))
	}
	delete(f.subs, pair{userID, authorID})
	return nil
}

func (f *fakeStore) recipesCount(authorID int64) int {
	n := 0
	for _, r := range f.recipes {
		if r.recipe.AuthorID == authorID {
			n++
		}
	}
	return n
}

func (f *fakeStore) ListSubscriptions(_ context.Context, userID int64, opts repository.ListOptions) ([]model.AuthorWithRecipes, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	type entry struct {
		seq    int64
		author model.AuthorWithRecipes
	}
	var entries []entry
	for p, seq := range f.subs {
		if p.a != userID {
			continue
		}
		entries = append(entries, entry{seq, model.AuthorWithRecipes{
			Profile:      model.Profile{User: *f.users[p.b], IsSubscribed: true},
			RecipesCount: f.recipesCount(p.b),
		}})
	}
	slices.SortFunc(entries, func(a, b entry) int { return int(b.seq - a.seq) })
	all := make([]model.AuthorWithRecipes, len(entries))
	for i, e := range entries {
		all[i] = e.author
	}
	return page(all, opts), len(all), nil
}

func (f *fakeStore) GetAuthorWithCount(_ context.Context, viewerID, authorID int64) (*model.AuthorWithRecipes, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[authorID]
	if !ok {
		return nil, apperror.NotFound("user", fmt.Sprint(authorID))
	}
	return &model.AuthorWithRecipes{
		Profile:      f.profile(viewerID, u),
		RecipesCount: f.recipesCount(authorID),
	}, nil
}

func page[T any](all []T, opts repository.ListOptions) []T {
	if opts.Offset >= len(all) {
		return []T{}
	}
	all = all[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(all) {
		all = all[:opts.Limit]
	}
	return all
}

// =========================================================================
// FAKE IMAGE STORE
// =========================================================================

type fakeImages struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	saveErr error
}

func newFakeImages() *fakeImages {
	return &fakeImages{objects: map[string][]byte{}}
}

func (f *fakeImages) Save(_ context.Context, key string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.objects[key] = data
	return nil
}

func (f *fakeImages) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeImages) URL(key string) string {
	if key == "" {
		return ""
	}
	return "http://media.test/" + key
}

func (f *fakeImages) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

// =========================================================================
// HELPERS
// =========================================================================

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func pngDataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testEnv struct {
	store   *fakeStore
	images  *fakeImages
	recipes *RecipeService
	users   *UserService
	auth    *AuthService
	tags    *TagService
	ingreds *IngredientService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newFakeStore()
	images := newFakeImages()
	v := NewValidator()
	logger := testLogger()

	issuer, err := auth.NewTokenService("test-secret-at-least-16", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	passwords := auth.NewPasswordServiceForTest(4)

	return &testEnv{
		store:   store,
		images:  images,
		recipes: NewRecipeService(store, store, store, store, images, v, logger),
		users:   NewUserService(store, store, store, passwords, images, v, logger),
		auth:    NewAuthService(store, store, issuer, passwords, v, logger),
		tags:    NewTagService(store, v, logger),
		ingreds: NewIngredientService(store, v, logger),
	}
}

func (e *testEnv) createUser(t *testing.T, username string) *model.User {
	t.Helper()
	u, err := e.users.Register(context.Background(), RegisterInput{
		Email:     username + "@example.com",
		Username:  username,
		FirstName: "Test",
		LastName:  "User",
		Password:  "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", username, err)
	}
	return u
}

// seed adds the tags breakfast/lunch and the ingredients sugar, flour and
// eggs, returning their ids by slug or name.
func (e *testEnv) seed(t *testing.T) (tags map[string]int64, ingredients map[string]int64) {
	t.Helper()
	ctx := context.Background()

	_, err := e.tags.Import(ctx, []TagInput{
		{Name: "Завтрак", Slug: "breakfast", Color: "#E26C2D"},
		{Name: "Обед", Slug: "lunch", Color: "#49B64E"},
	})
	if err != nil {
		t.Fatalf("importing tags: %v", err)
	}
	_, err = e.ingreds.Import(ctx, []IngredientInput{
		{Name: "Сахар", MeasurementUnit: "г"},
		{Name: "Мука", MeasurementUnit: "г"},
		{Name: "Яйца", MeasurementUnit: "шт"},
	})
	if err != nil {
		t.Fatalf("importing ingredients: %v", err)
	}

	tags = map[string]int64{}
	all, _ := e.store.ListTags(ctx)
	for _, tag := range all {
		tags[tag.Slug] = tag.ID
	}
	ingredients = map[string]int64{}
	found, _ := e.store.SearchIngredients(ctx, "")
	for _, ing := range found {
		ingredients[ing.Name] = ing.ID
	}
	return tags, ingredients
}

func (e *testEnv) createRecipe(t *testing.T, authorID int64, name string, tagIDs []int64, items ...model.IngredientAmount) *model.Recipe {
	t.Helper()
	r, err := e.recipes.Create(context.Background(), authorID, RecipeInput{
		Ingredients: items,
		Tags:        tagIDs,
		Image:       pngDataURI(),
		Name:        name,
		Text:        "Mix and bake.",
		CookingTime: 30,
	})
	if err != nil {
		t.Fatalf("Create(%s): %v", name, err)
	}
	return r
}
