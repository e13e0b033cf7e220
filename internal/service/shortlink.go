package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/sakif/foodgram/internal/apperror"
)

const (
	shortCodeLength   = 6
	shortCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// maxShortCodeAttempts bounds the re-roll loop. With 62^6 possible codes a
	// collision is rare; running out of attempts means something else is wrong.
	maxShortCodeAttempts = 10
)

// ShortCodeStore is the part of the recipe repository the generator needs.
type ShortCodeStore interface {
	ShortCodeTaken(ctx context.Context, code string) (bool, error)
	SetShortCode(ctx context.Context, id int64, code string) (string, error)
}

// ShortLinkGenerator produces unique 6-character recipe codes.
type ShortLinkGenerator struct {
	store ShortCodeStore
	rand  io.Reader
}

func NewShortLinkGenerator(store ShortCodeStore) *ShortLinkGenerator {
	return &ShortLinkGenerator{store: store, rand: rand.Reader}
}

// Generate returns a code that no recipe currently uses. Two concurrent
// callers can still pick the same code; the UNIQUE column turns the loser's
// insert into a conflict, which callers handle by generating again.
func (g *ShortLinkGenerator) Generate(ctx context.Context) (string, error) {
	for range maxShortCodeAttempts {
		code, err := g.randomCode()
		if err != nil {
			return "", err
		}

		taken, err := g.store.ShortCodeTaken(ctx, code)
		if err != nil {
			return "", fmt.Errorf("checking short code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free short code after %d attempts", maxShortCodeAttempts)
}

// Ensure returns the recipe's code, assigning a fresh one when current is
// empty. An existing code is never replaced.
func (g *ShortLinkGenerator) Ensure(ctx context.Context, recipeID int64, current string) (string, error) {
	if current != "" {
		return current, nil
	}

	for range maxShortCodeAttempts {
		code, err := g.Generate(ctx)
		if err != nil {
			return "", err
		}

		stored, err := g.store.SetShortCode(ctx, recipeID, code)
		if errors.Is(err, apperror.ErrConflict) {
			continue
		}
		if err != nil {
			return "", err
		}
		return stored, nil
	}
	return "", fmt.Errorf("assigning short code to recipe %d: too many collisions", recipeID)
}

// randomCode draws characters by rejection sampling so every symbol of the
// alphabet is equally likely: bytes >= 248 (the largest multiple of 62 below
// 256) are discarded.
func (g *ShortLinkGenerator) randomCode() (string, error) {
	const limit = 256 - 256%len(shortCodeAlphabet)

	code := make([]byte, 0, shortCodeLength)
	buf := make([]byte, shortCodeLength*2)
	for len(code) < shortCodeLength {
		if _, err := io.ReadFull(g.rand, buf); err != nil {
			return "", fmt.Errorf("reading random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			code = append(code, shortCodeAlphabet[int(b)%len(shortCodeAlphabet)])
			if len(code) == shortCodeLength {
				break
			}
		}
	}
	return string(code), nil
}
