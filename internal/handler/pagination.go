package handler

import (
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sakif/foodgram/internal/service"
)

const maxPageSize = service.MaxListLimit

// maxPageNumber keeps (number-1)*size within int for any accepted size.
const maxPageNumber = math.MaxInt / maxPageSize

// Page is the paginated list envelope:
//
//	{"count": 123, "next": "http://.../api/recipes/?page=3", "previous": "...?page=1", "results": [...]}
//
// Next and Previous are null at either end.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

type pageParams struct {
	number int
	size   int
}

func (p pageParams) offset() int {
	return (p.number - 1) * p.size
}

// parsePage reads ?page= and ?limit=. Missing or invalid values fall back to
// page 1 and defaultSize; limit is capped at maxPageSize and page at
// maxPageNumber.
func parsePage(r *http.Request, defaultSize int) pageParams {
	q := r.URL.Query()

	number, err := strconv.Atoi(q.Get("page"))
	if err != nil || number < 1 {
		number = 1
	}
	if number > maxPageNumber {
		number = maxPageNumber
	}

	size, err := strconv.Atoi(q.Get("limit"))
	if err != nil || size < 1 {
		size = defaultSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	return pageParams{number: number, size: size}
}

// newPage wraps results with the total count and absolute next/previous links
// built from baseURL and the request's own path and query.
func newPage[T any](r *http.Request, baseURL string, p pageParams, total int, results []T) Page[T] {
	if results == nil {
		results = []T{}
	}
	page := Page[T]{Count: total, Results: results}

	last := lastPage(total, p.size)
	if p.number < last {
		next := pageURL(r, baseURL, p.number+1)
		page.Next = &next
	}
	// Past the end, previous points at the last real page.
	if p.number > 1 {
		prev := pageURL(r, baseURL, min(p.number-1, last))
		page.Previous = &prev
	}
	return page
}

// lastPage is the number of the final page; an empty list still has page 1.
func lastPage(total, size int) int {
	if total <= 0 {
		return 1
	}
	return (total-1)/size + 1
}

func pageURL(r *http.Request, baseURL string, number int) string {
	q := r.URL.Query()
	if number <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(number))
	}

	u := url.URL{Path: r.URL.Path, RawQuery: q.Encode()}
	return baseURL + u.String()
}
