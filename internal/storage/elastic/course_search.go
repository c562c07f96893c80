package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/ShaanSolanki/lms/internal/models"
)

type CourseSearchRepo struct {
	client *elasticsearch.Client
	index  string
	strip  *bluemonday.Policy
}

func NewCourseSearchRepository(client *elasticsearch.Client, index string) *CourseSearchRepo {
	return &CourseSearchRepo{client: client, index: index, strip: bluemonday.StrictPolicy()}
}

var indexMapping = map[string]any{
	"settings": map[string]any{
		"analysis": map[string]any{
			"analyzer": map[string]any{
				"edge_ngram_analyzer": map[string]any{
					"tokenizer": "edge_ngram_tokenizer",
					"filter":    []string{"lowercase"},
				},
			},
			"tokenizer": map[string]any{
				"edge_ngram_tokenizer": map[string]any{
					"type":        "edge_ngram",
					"min_gram":    2,
					"max_gram":    20,
					"token_chars": []string{"letter", "digit"},
				},
			},
		},
	},
	"mappings": map[string]any{
		"properties": map[string]any{
			"title":            ngramText(),
			"smallDescription": ngramText(),
			"description":      map[string]any{"type": "text"},
			"category":         map[string]any{"type": "keyword"},
			"level":            map[string]any{"type": "keyword"},
			"status":           map[string]any{"type": "keyword"},
		},
	},
}

func ngramText() map[string]any {
	return map[string]any{
		"type":            "text",
		"analyzer":        "edge_ngram_analyzer",
		"search_analyzer": "standard",
	}
}

func (r *CourseSearchRepo) CreateIndexIfNotExist(ctx context.Context) error {
	existsReq := esapi.IndicesExistsRequest{Index: []string{r.index}}
	existsRes, err := existsReq.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("error checking index existence: %w", err)
	}
	defer existsRes.Body.Close()

	switch {
	case existsRes.StatusCode == 404:
	case existsRes.StatusCode >= 300:
		return fmt.Errorf("index existence check failed with status code %d", existsRes.StatusCode)
	default:
		return nil
	}

	body, err := json.Marshal(indexMapping)
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}
	req := esapi.IndicesCreateRequest{Index: r.index, Body: bytes.NewReader(body)}
	res, err := req.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("mapping creation failed: %s", res.String())
	}
	return nil
}

func (r *CourseSearchRepo) document(c models.Course) map[string]any {
	return map[string]any{
		"title":            c.Title,
		"smallDescription": c.SmallDescription,
		"description":      strings.TrimSpace(r.strip.Sanitize(c.Description)),
		"category":         c.Category,
		"level":            c.Level,
		"status":           c.Status,
	}
}

// Index creates or replaces the search document of c.
func (r *CourseSearchRepo) Index(ctx context.Context, c models.Course) error {
	data, err := json.Marshal(r.document(c))
	if err != nil {
		return fmt.Errorf("marshal doc: %w", err)
	}
	req := esapi.IndexRequest{
		Index:      r.index,
		DocumentID: c.ID.String(),
		Refresh:    "true",
		Body:       bytes.NewReader(data),
	}
	res, err := req.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("index request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index error: %s", res.String())
	}
	return nil
}

func (r *CourseSearchRepo) Delete(ctx context.Context, id uuid.UUID) error {
	req := esapi.DeleteRequest{
		Index:      r.index,
		DocumentID: id.String(),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	defer res.Body.Close()
	// a course that was never indexed is already gone
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete error: %s", res.String())
	}
	return nil
}

func searchQuery(query string, size int) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":                query,
						"fields":               []string{"title^3", "smallDescription^2", "description", "category"},
						"type":                 "best_fields",
						"fuzziness":            "AUTO",
						"operator":             "or",
						"minimum_should_match": "2<75%",
					},
				},
				"filter": map[string]any{
					"term": map[string]any{"status": models.StatusPublished},
				},
			},
		},
		"size": size,
	}
}

// Search returns ids of published courses matching query, best match first.
func (r *CourseSearchRepo) Search(ctx context.Context, query string, size int) ([]uuid.UUID, error) {
	if size <= 0 {
		size = 10
	}
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(searchQuery(query, size)); err != nil {
		return nil, fmt.Errorf("encode search body: %w", err)
	}
	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search error: %s", string(bodyBytes))
	}
	var esRes struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esRes); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(esRes.Hits.Hits))
	for _, h := range esRes.Hits.Hits {
		if id, err := uuid.Parse(h.ID); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *CourseSearchRepo) Ping(ctx context.Context) error {
	res, err := esapi.PingRequest{}.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("ping request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("ping error: %s", res.Status())
	}
	return nil
}
