package pool

import (
	"path/filepath"
	"testing"

	"modelgate/internal/crypto"
	"modelgate/internal/domain"
)

func TestJSONFileStoreSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.json")
	store := NewJSONFileStore(path)

	want := []domain.Account{
		{ID: "acc-1", Status: domain.StatusActive, MachineID: "deadbeef"},
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 || got[0].MachineID != "deadbeef" {
		t.Fatalf("got %+v, want MachineID=deadbeef", got)
	}
}

func TestJSONFileStoreWithEncryptionEncryptsMachineIDAtRest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.json")
	enc, err := crypto.NewEncryptionServiceFromPassphrase("test-passphrase", path)
	if err != nil {
		t.Fatalf("NewEncryptionServiceFromPassphrase: %v", err)
	}
	store := NewJSONFileStoreWithEncryption(path, enc)

	want := []domain.Account{
		{ID: "acc-1", Status: domain.StatusActive, MachineID: "deadbeef"},
		{ID: "acc-2", Status: domain.StatusActive}, // no machineId yet
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	plain, err := NewJSONFileStore(path).Load()
	if err != nil {
		t.Fatalf("Load (plaintext reader): %v", err)
	}
	if plain[0].MachineID == "deadbeef" || plain[0].MachineID == "" {
		t.Fatalf("expected on-disk machineId to be ciphertext, got %q", plain[0].MachineID)
	}
	if plain[1].MachineID != "" {
		t.Fatalf("expected empty machineId to stay empty on disk, got %q", plain[1].MachineID)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load (encrypted reader): %v", err)
	}
	if got[0].MachineID != "deadbeef" {
		t.Fatalf("got MachineID %q, want deadbeef after decrypt", got[0].MachineID)
	}
	if got[1].MachineID != "" {
		t.Fatalf("got MachineID %q, want empty", got[1].MachineID)
	}
}
