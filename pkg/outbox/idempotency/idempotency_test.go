package idempotency

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("hn:idempotency:%s:%s", scope, id)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func TestCheckAndMarkProcessed(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	eventID := uuid.New()

	processed, err := manager.CheckAndMarkProcessed(context.Background(), "orders", eventID)
	if err != nil {
		t.Fatalf("first check: %v", err)
	}
	if processed {
		t.Fatal("fresh event must not be marked processed")
	}

	processed, err = manager.CheckAndMarkProcessed(context.Background(), "orders", eventID)
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if !processed {
		t.Fatal("replayed event must be reported as processed")
	}
}

func TestCheckAndMarkProcessedScopesByConsumer(t *testing.T) {
	store := newFakeStore()
	manager, _ := NewManager(store, time.Hour)
	eventID := uuid.New()

	if _, err := manager.CheckAndMarkProcessed(context.Background(), "orders", eventID); err != nil {
		t.Fatalf("mark orders: %v", err)
	}
	processed, err := manager.CheckAndMarkProcessed(context.Background(), "notifications", eventID)
	if err != nil {
		t.Fatalf("check notifications: %v", err)
	}
	if processed {
		t.Fatal("consumers must track processed events independently")
	}
}

func TestDeleteAllowsReprocessing(t *testing.T) {
	store := newFakeStore()
	manager, _ := NewManager(store, time.Hour)
	eventID := uuid.New()

	if _, err := manager.CheckAndMarkProcessed(context.Background(), "orders", eventID); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := manager.Delete(context.Background(), "orders", eventID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	processed, err := manager.CheckAndMarkProcessed(context.Background(), "orders", eventID)
	if err != nil {
		t.Fatalf("recheck: %v", err)
	}
	if processed {
		t.Fatal("deleted mark must allow reprocessing")
	}
}

func TestCheckAndMarkProcessedValidatesInput(t *testing.T) {
	manager, _ := NewManager(newFakeStore(), time.Hour)
	if _, err := manager.CheckAndMarkProcessed(context.Background(), "", uuid.New()); err == nil {
		t.Fatal("expected error for empty consumer")
	}
	if _, err := manager.CheckAndMarkProcessed(context.Background(), "orders", uuid.Nil); err == nil {
		t.Fatal("expected error for nil event id")
	}
}
