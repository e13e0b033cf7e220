package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/foodgram/internal/apperror"
)

// =========================================================================
// REGISTRATION AND PROFILE
// =========================================================================

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	u := env.createUser(t, "chef")

	assert.NotZero(t, u.ID)
	assert.NotEqual(t, "s3cret-pass", u.PasswordHash)
	assert.NotEmpty(t, u.PasswordHash)
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"bad email", RegisterInput{Email: "nope", Username: "a", FirstName: "A", LastName: "B", Password: "long-enough"}, "email"},
		{"reserved username", RegisterInput{Email: "a@b.co", Username: "me", FirstName: "A", LastName: "B", Password: "long-enough"}, "username"},
		{"short password", RegisterInput{Email: "a@b.co", Username: "a", FirstName: "A", LastName: "B", Password: "short"}, "password"},
		{"missing last name", RegisterInput{Email: "a@b.co", Username: "a", FirstName: "A", Password: "long-enough"}, "last_name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.users.Register(ctx, tt.in)
			assert.Contains(t, validationFields(t, err), tt.field)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "chef")

	_, err := env.users.Register(context.Background(), RegisterInput{
		Email:     "CHEF@example.com",
		Username:  "another",
		FirstName: "A",
		LastName:  "B",
		Password:  "long-enough",
	})

	assert.Contains(t, validationFields(t, err), "email")
}

func TestSetPassword(t *testing.T) {
	env := newTestEnv(t)
	u := env.createUser(t, "chef")
	ctx := context.Background()

	err := env.users.SetPassword(ctx, u.ID, SetPasswordInput{NewPassword: "brand-new-pass", CurrentPassword: "wrong"})
	assert.Contains(t, validationFields(t, err), "current_password")

	err = env.users.SetPassword(ctx, u.ID, SetPasswordInput{NewPassword: "brand-new-pass", CurrentPassword: "s3cret-pass"})
	require.NoError(t, err)

	_, err = env.auth.Login(ctx, LoginInput{Email: u.Email, Password: "brand-new-pass"})
	assert.NoError(t, err)
	_, err = env.auth.Login(ctx, LoginInput{Email: u.Email, Password: "s3cret-pass"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestAvatar(t *testing.T) {
	env := newTestEnv(t)
	u := env.createUser(t, "chef")
	ctx := context.Background()

	first, err := env.users.SetAvatar(ctx, u.ID, pngDataURI())
	require.NoError(t, err)
	assert.True(t, env.images.has(first))

	second, err := env.users.SetAvatar(ctx, u.ID, pngDataURI())
	require.NoError(t, err)
	assert.False(t, env.images.has(first), "replaced avatar should be deleted")

	profile, err := env.users.Get(ctx, 0, u.ID)
	require.NoError(t, err)
	assert.Equal(t, second, profile.Avatar)

	require.NoError(t, env.users.DeleteAvatar(ctx, u.ID))
	assert.False(t, env.images.has(second))
	profile, err = env.users.Get(ctx, 0, u.ID)
	require.NoError(t, err)
	assert.Empty(t, profile.Avatar)

	_, err = env.users.SetAvatar(ctx, u.ID, "")
	assert.Contains(t, validationFields(t, err), "avatar")
	_, err = env.users.SetAvatar(ctx, u.ID, "data:text/plain;base64,aGk=")
	assert.Contains(t, validationFields(t, err), "avatar")
}

// =========================================================================
// SUBSCRIPTIONS
// =========================================================================

func TestSubscribe_SelfAlwaysFails(t *testing.T) {
	env := newTestEnv(t)
	u := env.createUser(t, "chef")
	ctx := context.Background()

	for range 2 {
		_, err := env.users.Subscribe(ctx, u.ID, u.ID, 0)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	}
	assert.Empty(t, env.store.subs)
}

func TestSubscribe_Toggle(t *testing.T) {
	env := newTestEnv(t)
	tags, ingredients := env.seed(t)
	reader := env.createUser(t, "reader")
	author := env.createUser(t, "author")
	for _, name := range []string{"One", "Two", "Three"} {
		env.createRecipe(t, author.ID, name, []int64{tags["lunch"]}, ingredient(ingredients["Мука"], 1))
	}
	ctx := context.Background()

	got, err := env.users.Subscribe(ctx, reader.ID, author.ID, 2)
	require.NoError(t, err)
	assert.True(t, got.IsSubscribed)
	assert.Equal(t, 3, got.RecipesCount)
	assert.Len(t, got.Recipes, 2)

	_, err = env.users.Subscribe(ctx, reader.ID, author.ID, 0)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	profile, err := env.users.Get(ctx, reader.ID, author.ID)
	require.NoError(t, err)
	assert.True(t, profile.IsSubscribed)

	require.NoError(t, env.users.Unsubscribe(ctx, reader.ID, author.ID))
	err = env.users.Unsubscribe(ctx, reader.ID, author.ID)
	assert.ErrorIs(t, err, apperror.ErrNotPresent)

	_, err = env.users.Subscribe(ctx, reader.ID, 9999, 0)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	err = env.users.Unsubscribe(ctx, reader.ID, 9999)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestSubscriptions_NewestFirstWithPreview(t *testing.T) {
	env := newTestEnv(t)
	tags, ingredients := env.seed(t)
	reader := env.createUser(t, "reader")
	first := env.createUser(t, "first")
	second := env.createUser(t, "second")
	env.createRecipe(t, first.ID, "A", []int64{tags["lunch"]}, ingredient(ingredients["Мука"], 1))
	env.createRecipe(t, first.ID, "B", []int64{tags["lunch"]}, ingredient(ingredients["Мука"], 1))
	ctx := context.Background()

	_, err := env.users.Subscribe(ctx, reader.ID, first.ID, 0)
	require.NoError(t, err)
	_, err = env.users.Subscribe(ctx, reader.ID, second.ID, 0)
	require.NoError(t, err)

	authors, total, err := env.users.Subscriptions(ctx, reader.ID, 10, 0, 1)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	assert.Equal(t, second.ID, authors[0].ID)
	assert.Equal(t, first.ID, authors[1].ID)
	assert.Len(t, authors[1].Recipes, 1)
	assert.Equal(t, 2, authors[1].RecipesCount)
}
