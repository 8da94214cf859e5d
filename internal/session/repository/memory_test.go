package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryRepository_Contract(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) Repository {
		return NewMemoryRepository()
	})
}

func TestMemoryRepository_ConcurrentRotateSingleWinner(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	s := newContractSession("user-1", "fam", "hash-0", time.Now())
	if err := r.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}

	const racers = 16
	var wg sync.WaitGroup
	errs := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- r.UpdateRotate(ctx, s.ID, "hash-0", "hash-new-"+string(rune('a'+i)), time.Now().Add(time.Hour))
		}(i)
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrNotFound):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("%d rotations succeeded, want exactly 1", wins)
	}
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	s := newContractSession("user-1", "fam", "hash-copy", time.Now())
	if err := r.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}
	s.Revoked = true

	got, err := r.FindByRefreshToken(ctx, "hash-copy")
	if err != nil {
		t.Fatalf("FindByRefreshToken: %v", err)
	}
	if got.Revoked {
		t.Error("mutating the caller's struct leaked into the store")
	}
	got.TokenFamily = "changed"
	again, _ := r.Get(s.ID)
	if again.TokenFamily != "fam" {
		t.Error("mutating a returned session leaked into the store")
	}
}
