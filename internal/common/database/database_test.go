package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"immigration-portal/internal/common/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func setupElasticsearch(t *testing.T, handler http.HandlerFunc) *ElasticsearchClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	es, err := NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return es
}

// ==========================
// Locker
// ==========================

func TestLocker_SingleHolder(t *testing.T) {
	mr, client := setupRedis(t)
	locker := NewLocker(client)
	ctx := context.Background()

	token, ok, err := locker.Acquire(ctx, "wizard:submit:app-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = locker.Acquire(ctx, "wizard:submit:app-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while the lock is held")

	assert.ErrorIs(t, locker.Release(ctx, "wizard:submit:app-1", "someone-else"), ErrLockNotHeld)
	require.NoError(t, locker.Release(ctx, "wizard:submit:app-1", token))
	assert.False(t, mr.Exists("wizard:submit:app-1"))
}

func TestLocker_ExpiresWithTTL(t *testing.T) {
	mr, client := setupRedis(t)
	locker := NewLocker(client)
	ctx := context.Background()

	token, ok, err := locker.Acquire(ctx, "lock", 2*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(3 * time.Second)

	_, ok, err = locker.Acquire(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.ErrorIs(t, locker.Release(ctx, "lock", token), ErrLockNotHeld)
}

// ==========================
// Elasticsearch
// ==========================

func TestElasticsearch_Search(t *testing.T) {
	var gotBody map[string]interface{}
	es := setupElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/programs/_search"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		_, _ = w.Write([]byte(`{"hits":{"hits":[
			{"_id":"p1","_source":{"id":"p1","name":"Express Entry"}},
			{"_id":"p2","_source":{"id":"p2","name":"Skilled Worker"}}
		]}}`))
	})

	hits, err := es.Search(context.Background(), "programs", map[string]interface{}{
		"query": map[string]interface{}{"match_all": map[string]interface{}{}},
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.JSONEq(t, `{"id":"p1","name":"Express Entry"}`, string(hits[0]))
	assert.Contains(t, gotBody, "query")
}

func TestElasticsearch_SearchError(t *testing.T) {
	es := setupElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"parsing_exception"}`))
	})

	_, err := es.Search(context.Background(), "programs", map[string]interface{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing_exception")
}

func TestElasticsearch_EnsureIndexCreatesWhenMissing(t *testing.T) {
	var created bool
	es := setupElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			created = true
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
		default:
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
	})

	require.NoError(t, es.EnsureIndex(context.Background(), "programs", []byte(`{}`)))
	assert.True(t, created)
}

// ==========================
// Postgres
// ==========================

func TestConstraintViolations(t *testing.T) {
	unique := fmt.Errorf("insert user: %w", &pq.Error{Code: "23505"})
	fk := &pq.Error{Code: "23503"}

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsForeignKeyViolation(unique))
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsUniqueViolation(errors.New("23505")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestNewPostgres_PoolDefaults(t *testing.T) {
	pg, err := NewPostgres(config.PostgresConfig{Host: "localhost", Port: 5432, Database: "portal", MaxConnections: 10, MaxIdle: 50})
	require.NoError(t, err)
	defer pg.Close()

	assert.Equal(t, 10, pg.DB.Stats().MaxOpenConnections)
}

// ==========================
// Migrations
// ==========================

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_init_schema.up.sql")
	assert.Contains(t, names, "000001_init_schema.down.sql")

	up, err := migrationsFS.ReadFile("migrations/000001_init_schema.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "UNIQUE (application_id, document_type)")
	assert.Contains(t, string(up), "application_submissions")
}
