package testutils

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ShaanSolanki/lms/internal/app_errors"
	"github.com/ShaanSolanki/lms/internal/models"
)

type storedObject struct {
	data        []byte
	contentType string
}

// Objects is an in-memory bucket.
type Objects struct {
	mu      sync.Mutex
	name    string
	objects map[string]storedObject
}

func NewObjects(bucket string) *Objects {
	return &Objects{name: bucket, objects: map[string]storedObject{}}
}

func (o *Objects) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(io.LimitReader(r, size+1))
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("object size does not match the declared size")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[key] = storedObject{data: data, contentType: contentType}
	return nil
}

func (o *Objects) Get(_ context.Context, key string) (*models.Object, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	obj, ok := o.objects[key]
	if !ok {
		return nil, app_errors.ErrObjectNotFound
	}
	return &models.Object{
		Body:        io.NopCloser(bytes.NewReader(obj.data)),
		ContentType: obj.contentType,
		Size:        int64(len(obj.data)),
	}, nil
}

func (o *Objects) Exists(_ context.Context, key string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.objects[key]
	return ok, nil
}

func (o *Objects) PresignedURL(_ context.Context, key string) (string, error) {
	return "http://objects.test/" + o.name + "/" + key + "?X-Amz-Signature=test", nil
}

func (o *Objects) Delete(_ context.Context, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.objects, key)
	return nil
}

// Keys lists stored keys in lexical order.
func (o *Objects) Keys() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	keys := make([]string, 0, len(o.objects))
	for k := range o.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Seed stores an object directly and returns its key.
func (o *Objects) Seed(key, contentType string, data []byte) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[key] = storedObject{data: data, contentType: contentType}
	return key
}

// Search is a substring matcher standing in for the Elasticsearch index.
type Search struct {
	mu   sync.Mutex
	docs map[uuid.UUID]models.Course
	Err  error
}

func NewSearch() *Search {
	return &Search{docs: map[uuid.UUID]models.Course{}}
}

func (s *Search) Index(_ context.Context, c models.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.docs[c.ID] = c
	return nil
}

func (s *Search) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	delete(s.docs, id)
	return nil
}

func (s *Search) Search(_ context.Context, query string, size int) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	q := strings.ToLower(query)
	var hits []models.Course
	for _, c := range s.docs {
		if c.Status != models.StatusPublished {
			continue
		}
		if strings.Contains(strings.ToLower(c.Title), q) || strings.Contains(strings.ToLower(c.SmallDescription), q) {
			hits = append(hits, c)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Title < hits[j].Title })
	ids := make([]uuid.UUID, 0, len(hits))
	for i, c := range hits {
		if i == size {
			break
		}
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (s *Search) Indexed(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[id]
	return ok
}
