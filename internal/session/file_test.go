package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shopcli", "session.json")

	store, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("OpenFileStore() error: %v", err)
	}
	if Load(store).Authenticated() {
		t.Fatal("new store should hold an anonymous session")
	}

	want := Session{Token: "tok", Username: "alice", Balance: "5000"}
	Save(store, want)
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}

	reopened, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	if got := Load(reopened); got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}

	Clear(reopened)
	if err := reopened.Flush(); err != nil {
		t.Fatalf("Flush() after Clear error: %v", err)
	}
	again, err := OpenFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := Load(again); got != (Session{}) {
		t.Errorf("after Clear, Load() = %+v, want anonymous", got)
	}
}

func TestOpenFileStoreErrors(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{token"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFileStore(bad); err == nil || !strings.Contains(err.Error(), "parsing session file") {
		t.Errorf("error = %v, want parsing error", err)
	}

	// A directory in place of the file is a read error, not "missing".
	if _, err := OpenFileStore(dir); err == nil || !strings.Contains(err.Error(), "reading session file") {
		t.Errorf("error = %v, want reading error", err)
	}
}

func TestOpenFileStoreNullDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "null.json")
	if err := os.WriteFile(path, []byte("null"), 0o600); err != nil {
		t.Fatal(err)
	}
	store, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("OpenFileStore() error: %v", err)
	}
	store.Set(KeyToken, "t")
	if v, _ := store.Get(KeyToken); v != "t" {
		t.Errorf("Get() = %q, want t", v)
	}
}
