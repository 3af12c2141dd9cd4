package store

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// runStoreSuite checks the behaviour every Store driver must share.
// newStore returns an empty store that is closed by the test cleanup.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndGetUser", func(t *testing.T) { testCreateAndGetUser(t, newStore(t)) })
	t.Run("AddXP", func(t *testing.T) { testAddXP(t, newStore(t)) })
	t.Run("AddXPConcurrent", func(t *testing.T) { testAddXPConcurrent(t, newStore(t)) })
	t.Run("Images", func(t *testing.T) { testImages(t, newStore(t)) })
	t.Run("ConsumeUpload", func(t *testing.T) { testConsumeUpload(t, newStore(t)) })
	t.Run("ConsumeUploadConcurrent", func(t *testing.T) { testConsumeUploadConcurrent(t, newStore(t)) })
}

func testCreateAndGetUser(t *testing.T, s Store) {
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if u.XP != 0 || u.CreatedAt.IsZero() {
		t.Errorf("CreateUser() = %+v, want zero xp and creation time", u)
	}

	if _, err := s.CreateUser(ctx, "alice", "other"); !errors.Is(err, ErrUserExists) {
		t.Errorf("CreateUser() duplicate error = %v, want ErrUserExists", err)
	}

	got, err := s.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if got.PasswordHash != "hash" {
		t.Errorf("GetUser().PasswordHash = %q, want %q", got.PasswordHash, "hash")
	}

	if _, err := s.GetUser(ctx, "bob"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetUser() missing error = %v, want ErrUserNotFound", err)
	}
}

func testAddXP(t *testing.T, s Store) {
	ctx := context.Background()
	if _, err := s.CreateUser(ctx, "alice", "hash"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	tests := []struct {
		name    string
		user    string
		delta   int
		want    int
		wantErr error
	}{
		{"correct answer", "alice", 50, 50, nil},
		{"wrong answer", "alice", 10, 60, nil},
		{"zero delta", "alice", 0, 60, nil},
		{"zero delta again", "alice", 0, 60, nil},
		{"negative delta", "alice", -5, 0, ErrNegativeXP},
		{"unknown user", "bob", 10, 0, ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.AddXP(ctx, tt.user, tt.delta)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("AddXP() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("AddXP() = %d, want %d", got, tt.want)
			}
		})
	}

	u, err := s.GetUser(ctx, "alice")
	if err != nil || u.XP != 60 {
		t.Errorf("GetUser() xp = %v, %v; want 60", u, err)
	}
}

func testAddXPConcurrent(t *testing.T, s Store) {
	ctx := context.Background()
	if _, err := s.CreateUser(ctx, "alice", "hash"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.AddXP(ctx, "alice", 10); err != nil {
				t.Errorf("AddXP() error = %v", err)
			}
		}()
	}
	wg.Wait()

	u, err := s.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if u.XP != workers*10 {
		t.Errorf("XP = %d, want %d", u.XP, workers*10)
	}
}

func testImages(t *testing.T, s Store) {
	ctx := context.Background()

	has, err := s.HasImage(ctx, "alice", "abc")
	if err != nil || has {
		t.Fatalf("HasImage() = %v, %v; want false, nil", has, err)
	}

	if err := s.RecordImage(ctx, "alice", "abc"); err != nil {
		t.Fatalf("RecordImage() error = %v", err)
	}
	if err := s.RecordImage(ctx, "alice", "abc"); err != nil {
		t.Fatalf("RecordImage() twice error = %v", err)
	}

	if has, _ := s.HasImage(ctx, "alice", "abc"); !has {
		t.Error("HasImage() = false after RecordImage")
	}
	// hashes are scoped to their owner
	if has, _ := s.HasImage(ctx, "bob", "abc"); has {
		t.Error("HasImage() for another user = true, want false")
	}
}

func testConsumeUpload(t *testing.T, s Store) {
	ctx := context.Background()
	const limit = 3

	if n, err := s.UploadsToday(ctx, "alice", "2025-01-01"); err != nil || n != 0 {
		t.Fatalf("UploadsToday() before any upload = %d, %v; want 0, nil", n, err)
	}

	for i := 1; i <= limit; i++ {
		n, err := s.ConsumeUpload(ctx, "alice", "2025-01-01", limit)
		if err != nil {
			t.Fatalf("ConsumeUpload() #%d error = %v", i, err)
		}
		if n != i {
			t.Errorf("ConsumeUpload() #%d = %d", i, n)
		}
	}

	if _, err := s.ConsumeUpload(ctx, "alice", "2025-01-01", limit); !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("ConsumeUpload() over limit error = %v, want ErrQuotaExceeded", err)
	}
	if n, _ := s.UploadsToday(ctx, "alice", "2025-01-01"); n != limit {
		t.Errorf("UploadsToday() = %d, want %d", n, limit)
	}
	// other players have their own counter
	if n, err := s.ConsumeUpload(ctx, "bob", "2025-01-01", limit); err != nil || n != 1 {
		t.Errorf("ConsumeUpload() bob = %d, %v; want 1, nil", n, err)
	}

	// a new day resets the counter
	if n, _ := s.UploadsToday(ctx, "alice", "2025-01-02"); n != 0 {
		t.Errorf("UploadsToday() next day = %d, want 0", n)
	}
	n, err := s.ConsumeUpload(ctx, "alice", "2025-01-02", limit)
	if err != nil || n != 1 {
		t.Errorf("ConsumeUpload() next day = %d, %v; want 1, nil", n, err)
	}
	if n, _ := s.UploadsToday(ctx, "alice", "2025-01-02"); n != 1 {
		t.Errorf("UploadsToday() after reset = %d, want 1", n)
	}
}

func testConsumeUploadConcurrent(t *testing.T, s Store) {
	ctx := context.Background()
	const limit = 3

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ConsumeUpload(ctx, "alice", "2025-01-01", limit)
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			} else if !errors.Is(err, ErrQuotaExceeded) {
				t.Errorf("ConsumeUpload() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if accepted != limit {
		t.Errorf("accepted uploads = %d, want %d", accepted, limit)
	}
	if n, _ := s.UploadsToday(ctx, "alice", "2025-01-01"); n != limit {
		t.Errorf("UploadsToday() = %d, want %d", n, limit)
	}
}
