package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"

	"notegen-api/internal/config"
	"notegen-api/internal/domain/entity"
	apperrors "notegen-api/pkg/errors"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	client, err := NewClientWithDialector(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := client.db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = client.Close() })

	if err := client.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return client
}

func TestUserRepository_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestClient(t))

	u := entity.NewUser("Carol@Example.com", "")
	if err := u.SetPassword("secret1"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == "" {
		t.Fatalf("expected generated id")
	}

	got, err := repo.GetByEmail(ctx, "carol@example.com")
	if err != nil || got == nil {
		t.Fatalf("GetByEmail: %v %v", got, err)
	}
	if got.Name != "carol" || !got.CheckPassword("secret1") {
		t.Fatalf("unexpected user: %+v", got)
	}

	exists, err := repo.ExistsByEmail(ctx, "CAROL@example.com")
	if err != nil || !exists {
		t.Fatalf("ExistsByEmail = %v, %v", exists, err)
	}

	missing, err := repo.GetByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("GetByID missing = %v, %v", missing, err)
	}

	if err := repo.UpdateLastLogin(ctx, u.ID); err != nil {
		t.Fatalf("UpdateLastLogin: %v", err)
	}
	reloaded, _ := repo.GetByID(ctx, u.ID)
	if reloaded == nil || reloaded.LastLoginAt == nil {
		t.Fatalf("last login not stored: %+v", reloaded)
	}
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestClient(t))

	first := entity.NewUser("dup@example.com", "a")
	_ = first.SetPassword("secret1")
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create: %v", err)
	}

	second := entity.NewUser("dup@example.com", "b")
	_ = second.SetPassword("secret2")
	err := repo.Create(ctx, second)
	if !errors.Is(err, apperrors.ErrDuplicateEmail) {
		t.Fatalf("expected duplicate email, got %v", err)
	}
}

func TestHistoryRepository_ListScopedAndOrdered(t *testing.T) {
	ctx := context.Background()
	repo := NewHistoryRepository(newTestClient(t))

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		h := entity.NewHistory("u-1", fmt.Sprintf("raw-%d", i), "[]")
		h.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := repo.Create(ctx, h); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	other := entity.NewHistory("u-2", "other", "[]")
	if err := repo.Create(ctx, other); err != nil {
		t.Fatalf("Create other: %v", err)
	}

	list, err := repo.ListByUser(ctx, "u-1", 3)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d", len(list))
	}
	want := []string{"raw-4", "raw-3", "raw-2"}
	for i, h := range list {
		if h.RawText != want[i] || h.UserID != "u-1" {
			t.Fatalf("list[%d] = %+v", i, h)
		}
	}
}

func TestTxManager_RollsBack(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	repo := NewUserRepository(client)
	tx := NewTxManager(client)

	boom := errors.New("boom")
	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		u := entity.NewUser("tx@example.com", "")
		_ = u.SetPassword("secret1")
		if err := repo.Create(ctx, u); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	exists, err := repo.ExistsByEmail(ctx, "tx@example.com")
	if err != nil || exists {
		t.Fatalf("user should be rolled back: %v %v", exists, err)
	}
}

func TestDSNQuotesValues(t *testing.T) {
	got := dsn(&config.PostgresConfig{
		Host: "db", Port: 5432, User: "app", Password: "p w'd", Database: "notegen",
	})
	want := `host='db' port=5432 user='app' password='p w\'d' dbname='notegen' sslmode=disable`
	if got != want {
		t.Fatalf("dsn = %s", got)
	}
}

func TestHealthCheck(t *testing.T) {
	if err := newTestClient(t).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}
