// Package storagetest provides an in-memory stand in for the storage service,
// speaking the same collection protocol over a local http listener.
package storagetest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	ItemsPath         string = "/item-storage/items"
	InstancesPath     string = "/instance-storage/instances"
	MaterialTypesPath string = "/material-types"
	LoanTypesPath     string = "/loan-types"
	LocationsPath     string = "/shelf-locations"
)

// Collections maps the collection paths known by default to their envelope key
var Collections = map[string]string{
	ItemsPath:         "items",
	InstancesPath:     "instances",
	MaterialTypesPath: "mtypes",
	LoanTypesPath:     "loantypes",
	LocationsPath:     "shelflocations",
}

type Server struct {
	server *httptest.Server

	mu          sync.RWMutex
	collections map[string]*store
	requests    map[string]int
	failures    map[string]int
	delays      map[string]time.Duration
}

type store struct {
	envelope string
	ids      []string
	records  map[string]map[string]any
}

func WithCollection(path, envelope string) func(*Server) {
	return func(s *Server) {
		s.collections[path] = newStore(envelope)
	}
}

func NewServer(options ...func(*Server)) *Server {
	s := &Server{
		collections: map[string]*store{},
		requests:    map[string]int{},
		failures:    map[string]int{},
		delays:      map[string]time.Duration{},
	}

	for path, envelope := range Collections {
		s.collections[path] = newStore(envelope)
	}

	for _, option := range options {
		option(s)
	}

	r := chi.NewRouter()
	r.Use(s.observe)

	for path := range s.collections {
		r.Route(path, func(r chi.Router) {
			r.Get("/", s.findAll(path))
			r.Post("/", s.create(path))
			r.Delete("/", s.deleteAll(path))
			r.Get("/{id}", s.findByID(path))
			r.Put("/{id}", s.update(path))
			r.Delete("/{id}", s.delete(path))
		})
	}

	s.server = httptest.NewServer(r)

	return s
}

func newStore(envelope string) *store {
	return &store{
		envelope: envelope,
		ids:      []string{},
		records:  map[string]map[string]any{},
	}
}

func (s *Server) URL() string {
	return s.server.URL
}

func (s *Server) Close() {
	s.server.Close()
}

// RequestCount returns the number of requests received for an exact request path
func (s *Server) RequestCount(path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.requests[path]
}

// RequestCountWithPrefix returns the number of requests received for all paths below prefix
func (s *Server) RequestCountWithPrefix(prefix string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for path, n := range s.requests {
		if strings.HasPrefix(path, prefix) {
			count += n
		}
	}

	return count
}

// Fail makes every request for the exact request path respond with statusCode
func (s *Server) Fail(path string, statusCode int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[path] = statusCode
}

// Delay holds every response for the exact request path for d
func (s *Server) Delay(path string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.delays[path] = d
}

// Seed stores records directly in the collection at path, bypassing the http interface
func (s *Server) Seed(path string, records ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[path]
	if !ok {
		return fmt.Errorf("no collection registered at %s", path)
	}

	for _, record := range records {
		b, err := json.Marshal(record)
		if err != nil {
			return err
		}

		m := map[string]any{}
		if err = json.Unmarshal(b, &m); err != nil {
			return err
		}

		id, _ := m["id"].(string)
		if id == "" {
			id = uuid.NewString()
			m["id"] = id
		}

		c.put(id, m)
	}

	return nil
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[r.URL.Path]++
		failure, failing := s.failures[r.URL.Path]
		delay := s.delays[r.URL.Path]
		s.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}

		if failing {
			writeText(w, failure, http.StatusText(failure))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) findAll(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := intParam(r, "limit", 10)
		if err != nil {
			writeText(w, http.StatusBadRequest, err.Error())
			return
		}

		offset, err := intParam(r, "offset", 0)
		if err != nil {
			writeText(w, http.StatusBadRequest, err.Error())
			return
		}

		filter, err := parseQuery(r.URL.Query().Get("query"))
		if err != nil {
			writeText(w, http.StatusBadRequest, err.Error())
			return
		}

		s.mu.RLock()
		c := s.collections[path]
		matching := make([]map[string]any, 0, len(c.ids))
		for _, id := range c.ids {
			if filter.matches(c.records[id]) {
				matching = append(matching, c.records[id])
			}
		}
		envelope := c.envelope
		s.mu.RUnlock()

		page := []map[string]any{}
		if offset < len(matching) {
			end := min(offset+limit, len(matching))
			page = matching[offset:end]
		}

		writeJSON(w, http.StatusOK, map[string]any{
			envelope:       page,
			"totalRecords": len(matching),
		})
	}
}

func (s *Server) findByID(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		s.mu.RLock()
		record, ok := s.collections[path].records[id]
		s.mu.RUnlock()

		if !ok {
			writeText(w, http.StatusNotFound, "Not Found")
			return
		}

		writeJSON(w, http.StatusOK, record)
	}
}

func (s *Server) create(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, err := readRecord(r)
		if err != nil {
			writeText(w, http.StatusBadRequest, err.Error())
			return
		}

		id, _ := record["id"].(string)
		if id == "" {
			id = uuid.NewString()
			record["id"] = id
		}

		s.mu.Lock()
		c := s.collections[path]
		_, exists := c.records[id]
		if !exists {
			c.put(id, record)
		}
		s.mu.Unlock()

		if exists {
			writeText(w, http.StatusBadRequest, fmt.Sprintf("id %s already exists", id))
			return
		}

		w.Header().Set("Location", path+"/"+id)
		writeJSON(w, http.StatusCreated, record)
	}
}

func (s *Server) update(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		record, err := readRecord(r)
		if err != nil {
			writeText(w, http.StatusBadRequest, err.Error())
			return
		}
		record["id"] = id

		s.mu.Lock()
		c := s.collections[path]
		_, exists := c.records[id]
		if exists {
			c.records[id] = record
		}
		s.mu.Unlock()

		if !exists {
			writeText(w, http.StatusNotFound, "Not Found")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) delete(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		s.mu.Lock()
		existed := s.collections[path].remove(id)
		s.mu.Unlock()

		if !existed {
			writeText(w, http.StatusNotFound, "Not Found")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) deleteAll(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		envelope := s.collections[path].envelope
		s.collections[path] = newStore(envelope)
		s.mu.Unlock()

		w.WriteHeader(http.StatusNoContent)
	}
}

func (c *store) put(id string, record map[string]any) {
	if _, ok := c.records[id]; !ok {
		c.ids = append(c.ids, id)
	}
	c.records[id] = record
}

func (c *store) remove(id string) bool {
	if _, ok := c.records[id]; !ok {
		return false
	}

	delete(c.records, id)
	for idx, existing := range c.ids {
		if existing == id {
			c.ids = append(c.ids[:idx], c.ids[idx+1:]...)
			break
		}
	}

	return true
}

func readRecord(r *http.Request) (map[string]any, error) {
	defer r.Body.Close()

	b, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	record := map[string]any{}
	if err = json.Unmarshal(b, &record); err != nil {
		return nil, fmt.Errorf("failed to parse body: %s", err.Error())
	}

	return record, nil
}

func intParam(r *http.Request, name string, defaultValue int) (int, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return defaultValue, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non negative integer", name)
	}

	return n, nil
}

func writeText(w http.ResponseWriter, statusCode int, body string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(statusCode)
	w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	b, _ := json.Marshal(body)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(b)
}
