package handler

import (
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/storage"
)

// Response shapes. Models hold storage keys; presenters turn them into
// public URLs through the configured ImageStore.

type userResponse struct {
	Email        string  `json:"email"`
	ID           int64   `json:"id"`
	Username     string  `json:"username"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	IsSubscribed bool    `json:"is_subscribed"`
	Avatar       *string `json:"avatar"`
}

type createdUserResponse struct {
	Email     string `json:"email"`
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type ingredientLine struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

type recipeResponse struct {
	ID               int64            `json:"id"`
	Tags             []model.Tag      `json:"tags"`
	Author           userResponse     `json:"author"`
	Ingredients      []ingredientLine `json:"ingredients"`
	IsFavorited      bool             `json:"is_favorited"`
	IsInShoppingCart bool             `json:"is_in_shopping_cart"`
	Name             string           `json:"name"`
	Image            string           `json:"image"`
	Text             string           `json:"text"`
	CookingTime      int              `json:"cooking_time"`
}

type recipeShortResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

type subscriptionResponse struct {
	userResponse
	Recipes      []recipeShortResponse `json:"recipes"`
	RecipesCount int                   `json:"recipes_count"`
}

type presenter struct {
	images storage.ImageStore
}

func (p presenter) user(u model.Profile) userResponse {
	var avatar *string
	if u.Avatar != "" {
		url := p.images.URL(u.Avatar)
		avatar = &url
	}
	return userResponse{
		Email:        u.Email,
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: u.IsSubscribed,
		Avatar:       avatar,
	}
}

func (p presenter) users(profiles []model.Profile) []userResponse {
	out := make([]userResponse, len(profiles))
	for i, u := range profiles {
		out[i] = p.user(u)
	}
	return out
}

func (p presenter) recipe(r model.Recipe) recipeResponse {
	tags := r.Tags
	if tags == nil {
		tags = []model.Tag{}
	}
	lines := make([]ingredientLine, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		lines[i] = ingredientLine(ing)
	}
	return recipeResponse{
		ID:               r.ID,
		Tags:             tags,
		Author:           p.user(r.Author),
		Ingredients:      lines,
		IsFavorited:      r.IsFavorited,
		IsInShoppingCart: r.IsInShoppingCart,
		Name:             r.Name,
		Image:            p.images.URL(r.Image),
		Text:             r.Text,
		CookingTime:      r.CookingTime,
	}
}

func (p presenter) recipes(recipes []model.Recipe) []recipeResponse {
	out := make([]recipeResponse, len(recipes))
	for i, r := range recipes {
		out[i] = p.recipe(r)
	}
	return out
}

func (p presenter) short(r model.RecipeSummary) recipeShortResponse {
	return recipeShortResponse{
		ID:          r.ID,
		Name:        r.Name,
		Image:       p.images.URL(r.Image),
		CookingTime: r.CookingTime,
	}
}

func (p presenter) author(a model.AuthorWithRecipes) subscriptionResponse {
	recipes := make([]recipeShortResponse, len(a.Recipes))
	for i, r := range a.Recipes {
		recipes[i] = p.short(r)
	}
	return subscriptionResponse{
		userResponse: p.user(a.Profile),
		Recipes:      recipes,
		RecipesCount: a.RecipesCount,
	}
}

func (p presenter) authors(authors []model.AuthorWithRecipes) []subscriptionResponse {
	out := make([]subscriptionResponse, len(authors))
	for i, a := range authors {
		out[i] = p.author(a)
	}
	return out
}
