// Package search indexes book records into Elasticsearch and serves the
// storefront search box. Every call to the cluster goes through a circuit
// breaker so a dead cluster degrades search instead of hanging requests.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/sony/gobreaker/v2"
)

const Index = "books"

// BookDoc is the indexed shape of a book record.
type BookDoc struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Genre       string  `json:"genre"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	CoverURL    string  `json:"cover_url,omitempty"`
}

type Result struct {
	Total int64     `json:"total"`
	Books []BookDoc `json:"books"`
}

type Service struct {
	es      *elasticsearch.Client
	index   string
	breaker *gobreaker.CircuitBreaker[*Result]
}

func NewService(es *elasticsearch.Client, index string) *Service {
	if index == "" {
		index = Index
	}
	cb := gobreaker.NewCircuitBreaker[*Result](gobreaker.Settings{
		Name: "es-search",
	})
	return &Service{es: es, index: index, breaker: cb}
}

func NewClient(url, user, password string) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("es: create client: %w", err)
	}
	return client, nil
}

// Search runs a fuzzy multi-field query with pagination.
func (s *Service) Search(ctx context.Context, query string, from, size int) (*Result, error) {
	return s.breaker.Execute(func() (*Result, error) {
		body := map[string]any{
			"query": map[string]any{
				"multi_match": map[string]any{
					"query":     query,
					"fields":    []string{"title^2", "author", "description", "genre"},
					"fuzziness": "AUTO",
				},
			},
			"from": from,
			"size": size,
		}

		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("es: encode query: %w", err)
		}

		res, err := s.es.Search(
			s.es.Search.WithContext(ctx),
			s.es.Search.WithIndex(s.index),
			s.es.Search.WithBody(&buf),
		)
		if err != nil {
			return nil, fmt.Errorf("es: search: %w", err)
		}
		defer res.Body.Close()
		if res.IsError() {
			msg, _ := io.ReadAll(res.Body)
			return nil, fmt.Errorf("es: search failed: %s: %s", res.Status(), msg)
		}

		var r struct {
			Hits struct {
				Total struct {
					Value int64 `json:"value"`
				} `json:"total"`
				Hits []struct {
					Source BookDoc `json:"_source"`
				} `json:"hits"`
			} `json:"hits"`
		}
		if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
			return nil, fmt.Errorf("es: decode response: %w", err)
		}

		books := make([]BookDoc, len(r.Hits.Hits))
		for i, hit := range r.Hits.Hits {
			books[i] = hit.Source
		}
		return &Result{Total: r.Hits.Total.Value, Books: books}, nil
	})
}

// IndexBook writes a book document, replacing any previous version.
func (s *Service) IndexBook(ctx context.Context, doc BookDoc) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("es: marshal doc: %w", err)
	}

	res, err := s.es.Index(
		s.index,
		strings.NewReader(string(data)),
		s.es.Index.WithDocumentID(doc.ID),
		s.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("es: index %s: %w", doc.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("es: index %s failed: %s: %s", doc.ID, res.Status(), msg)
	}
	return nil
}

// DeleteBook removes a document; a missing document is not an error.
func (s *Service) DeleteBook(ctx context.Context, id string) error {
	res, err := s.es.Delete(s.index, id, s.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("es: delete %s: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("es: delete %s failed: %s: %s", id, res.Status(), msg)
	}
	return nil
}
