package secrets_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/Strob0t/secretsdir/internal/secrets"
)

func mapLoader(m map[string]string) secrets.Loader {
	return func(context.Context) (secrets.Data, error) {
		return secrets.FromMap(m)
	}
}

func get(v *secrets.Vault, key string) string {
	val, _ := v.Lookup(key)
	return val
}

func TestNewVault_InitialLoad(t *testing.T) {
	v, err := secrets.NewVault(context.Background(), mapLoader(map[string]string{"db:host": "localhost", "db:port": "5432"}))
	if err != nil {
		t.Fatalf("NewVault failed: %v", err)
	}

	if got := get(v, "db:host"); got != "localhost" {
		t.Fatalf("expected 'localhost', got %q", got)
	}
	if got := get(v, "DB:PORT"); got != "5432" {
		t.Fatalf("expected case-insensitive lookup to return '5432', got %q", got)
	}
	if v.Len() != 2 {
		t.Fatalf("expected 2 secrets, got %d", v.Len())
	}
}

func TestNewVault_LoaderError(t *testing.T) {
	_, err := secrets.NewVault(context.Background(), func(context.Context) (secrets.Data, error) {
		return secrets.Data{}, secrets.ErrDirectoryNotFound
	})
	if err == nil {
		t.Fatal("expected error from failing loader")
	}
	if !errors.Is(err, secrets.ErrDirectoryNotFound) {
		t.Fatalf("expected wrapped ErrDirectoryNotFound, got %v", err)
	}
}

func TestVault_GetMissingKey(t *testing.T) {
	v, _ := secrets.NewVault(context.Background(), mapLoader(map[string]string{"exist": "yes"}))
	if got := get(v, "missing"); got != "" {
		t.Fatalf("expected empty string for missing key, got %q", got)
	}
	if _, ok := v.Lookup("missing"); ok {
		t.Fatal("expected Lookup to report missing key")
	}
}

func TestVault_Reload(t *testing.T) {
	callCount := 0
	v, _ := secrets.NewVault(context.Background(), func(context.Context) (secrets.Data, error) {
		callCount++
		if callCount == 1 {
			return secrets.FromMap(map[string]string{"token": "old", "stale": "x"})
		}
		return secrets.FromMap(map[string]string{"token": "new"})
	})

	if got := get(v, "token"); got != "old" {
		t.Fatalf("expected 'old', got %q", got)
	}

	if err := v.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	if got := get(v, "token"); got != "new" {
		t.Fatalf("expected 'new' after reload, got %q", got)
	}
	// Reload replaces the snapshot, it does not merge.
	if _, ok := v.Lookup("stale"); ok {
		t.Fatal("expected 'stale' to be gone after reload")
	}
}

func TestVault_ReloadErrorPreservesValues(t *testing.T) {
	callCount := 0
	v, _ := secrets.NewVault(context.Background(), func(context.Context) (secrets.Data, error) {
		callCount++
		if callCount == 1 {
			return secrets.FromMap(map[string]string{"key": "original"})
		}
		return secrets.Data{}, errors.New("read failed")
	})

	if err := v.Reload(context.Background()); err == nil {
		t.Fatal("expected reload error")
	}

	if got := get(v, "key"); got != "original" {
		t.Fatalf("expected 'original' after failed reload, got %q", got)
	}
}

func TestVault_ConcurrentAccess(t *testing.T) {
	v, _ := secrets.NewVault(context.Background(), mapLoader(map[string]string{"k": "v"}))

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = get(v, "k")
		}()
		go func() {
			defer wg.Done()
			_ = v.Reload(context.Background())
		}()
	}
	wg.Wait()
}

func TestVault_Redacted(t *testing.T) {
	v, _ := secrets.NewVault(context.Background(), mapLoader(map[string]string{
		"api:key": "sk-abcdef123456",
		"short":   "ab",
	}))

	if got := v.Redacted("api:key"); got != "sk****" {
		t.Errorf("expected 'sk****', got %q", got)
	}
	if got := v.Redacted("short"); got != "****" {
		t.Errorf("expected '****', got %q", got)
	}
	if got := v.Redacted("missing"); got != "" {
		t.Errorf("expected empty string for missing key, got %q", got)
	}
}

func TestVault_RedactString(t *testing.T) {
	v, _ := secrets.NewVault(context.Background(), mapLoader(map[string]string{
		"db:password":  "supersecret123",
		"api:token":    "tok_live_abcdef",
		"short:secret": "ab",
	}))

	input := "Connected to DB with password supersecret123 and token tok_live_abcdef (ab)"
	got := v.RedactString(input)

	if strings.Contains(got, "supersecret123") {
		t.Errorf("DB password was not redacted in %q", got)
	}
	if strings.Contains(got, "tok_live_abcdef") {
		t.Errorf("API token was not redacted in %q", got)
	}
	if !strings.Contains(got, "su****") || !strings.Contains(got, "to****") {
		t.Errorf("expected masked values, got %q", got)
	}
	if !strings.Contains(got, "(ab)") {
		t.Errorf("expected short value to be left alone, got %q", got)
	}
}

func TestVault_Keys(t *testing.T) {
	v, _ := secrets.NewVault(context.Background(), mapLoader(map[string]string{"b": "2", "A": "1"}))

	keys := v.Keys()
	if len(keys) != 2 || keys[0] != "A" || keys[1] != "b" {
		t.Fatalf("expected sorted keys [A b], got %v", keys)
	}
}
