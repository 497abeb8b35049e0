package docstore

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is an in-process Store with the same merge and versioning
// semantics as the Postgres implementation. Tests use it directly; FailOn
// lets them force failures on chosen operations.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]*memoryDoc

	// FailOn, when set, is consulted before every operation; a non-nil
	// return aborts the call with that error. op is one of get, set,
	// delete, list, update.
	FailOn func(op, path string) error
}

type memoryDoc struct {
	data    map[string]interface{}
	version int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*memoryDoc)}
}

func (s *MemoryStore) fail(op, path string) error {
	if s.FailOn != nil {
		return s.FailOn(op, path)
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, path string) (*Document, error) {
	_, id, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	if err := s.fail("get", path); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[path]
	if !ok {
		return nil, ErrNotFound
	}
	return &Document{Path: path, ID: id, Data: deepCopy(doc.data), Version: doc.version}, nil
}

func (s *MemoryStore) Set(ctx context.Context, path string, data map[string]interface{}, merge bool) error {
	if _, _, err := SplitPath(path); err != nil {
		return err
	}
	if err := s.fail("set", path); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.docs[path]
	if !ok {
		s.docs[path] = &memoryDoc{data: deepCopy(data), version: 1}
		return nil
	}

	if merge {
		// Shallow merge: colliding top-level fields are replaced wholesale.
		merged := deepCopy(existing.data)
		for k, v := range deepCopy(data) {
			merged[k] = v
		}
		existing.data = merged
	} else {
		existing.data = deepCopy(data)
	}
	existing.version++
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, path string) error {
	if _, _, err := SplitPath(path); err != nil {
		return err
	}
	if err := s.fail("delete", path); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, path)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, collectionPath string) ([]*Document, error) {
	if err := s.fail("list", collectionPath); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var docs []*Document
	for path, doc := range s.docs {
		collection, id, err := SplitPath(path)
		if err != nil || collection != collectionPath {
			continue
		}
		docs = append(docs, &Document{Path: path, ID: id, Data: deepCopy(doc.data), Version: doc.version})
	}

	// Stable order for callers that display results.
	for i := range docs {
		for j := i + 1; j < len(docs); j++ {
			if docs[j].Path < docs[i].Path {
				docs[i], docs[j] = docs[j], docs[i]
			}
		}
	}
	return docs, nil
}

func (s *MemoryStore) Update(ctx context.Context, path string, fn UpdateFunc) error {
	if _, _, err := SplitPath(path); err != nil {
		return err
	}
	if err := s.fail("update", path); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.docs[path]
	var data map[string]interface{}
	if exists {
		data = deepCopy(existing.data)
	}

	newData, err := fn(data, exists)
	if err != nil {
		return err
	}

	if newData == nil {
		delete(s.docs, path)
		return nil
	}
	if exists {
		existing.data = deepCopy(newData)
		existing.version++
		return nil
	}
	s.docs[path] = &memoryDoc{data: deepCopy(newData), version: 1}
	return nil
}

// deepCopy round-trips through JSON so callers never share maps with the
// store, matching the isolation a real database gives.
func deepCopy(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return map[string]interface{}{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return map[string]interface{}{}
	}
	out := make(map[string]interface{}, len(data))
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*PostgresStore)(nil)
