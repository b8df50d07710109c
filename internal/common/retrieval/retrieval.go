// Package retrieval queries the pre-built document indices. The advisor
// treats a missing index as a normal condition, modelled by Optional.
package retrieval

import (
	"context"
	"errors"
	"reflect"

	"climate-risk-advisor/internal/models"
)

var ErrRetrievalFailed = errors.New("RETRIEVAL_FAILED")

// Retriever returns up to k documents for query, most relevant first.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]models.RetrievedDocument, error)
}

// RetrieverFunc adapts a function to Retriever.
type RetrieverFunc func(ctx context.Context, query string, k int) ([]models.RetrievedDocument, error)

func (f RetrieverFunc) Retrieve(ctx context.Context, query string, k int) ([]models.RetrievedDocument, error) {
	return f(ctx, query, k)
}

// Optional is either Some(Retriever) or None.
type Optional struct {
	r Retriever
}

// Some wraps a configured retriever. A nil retriever, including a typed
// nil pointer held in the interface, yields None.
func Some(r Retriever) Optional {
	if isNil(r) {
		return None()
	}
	return Optional{r: r}
}

func isNil(r Retriever) bool {
	if r == nil {
		return true
	}
	v := reflect.ValueOf(r)
	switch v.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Interface, reflect.Slice, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// None is the absent retriever.
func None() Optional {
	return Optional{}
}

// Get returns the retriever and whether one is present.
func (o Optional) Get() (Retriever, bool) {
	return o.r, o.r != nil
}

// sanitize drops hits without content and caps the result at k.
func sanitize(docs []models.RetrievedDocument, k int) []models.RetrievedDocument {
	out := make([]models.RetrievedDocument, 0, len(docs))
	for _, d := range docs {
		if d.Content == "" {
			continue
		}
		out = append(out, d)
		if k > 0 && len(out) == k {
			break
		}
	}
	return out
}
