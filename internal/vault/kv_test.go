package vault

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileKVRoundTrip(t *testing.T) {
	dir := t.TempDir()

	kv := OpenFileKV(dir)
	if err := kv.Write("accessToken", "tok-1"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := kv.Write("refreshToken", "ref-1"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// A fresh open must see the persisted values.
	kv2 := OpenFileKV(dir)
	if v, ok := kv2.Read("accessToken"); !ok || v != "tok-1" {
		t.Errorf("Read(accessToken) = %q, %v, want tok-1, true", v, ok)
	}
	if v, ok := kv2.Read("refreshToken"); !ok || v != "ref-1" {
		t.Errorf("Read(refreshToken) = %q, %v, want ref-1, true", v, ok)
	}
}

func TestFileKVMissingKey(t *testing.T) {
	kv := OpenFileKV(t.TempDir())
	if v, ok := kv.Read("nope"); ok || v != "" {
		t.Errorf("Read(missing) = %q, %v, want empty, false", v, ok)
	}
}

func TestFileKVDelete(t *testing.T) {
	dir := t.TempDir()
	kv := OpenFileKV(dir)
	if err := kv.Write("k", "v"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := kv.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := kv.Read("k"); ok {
		t.Error("key still readable after Delete")
	}
	if _, ok := OpenFileKV(dir).Read("k"); ok {
		t.Error("key still persisted after Delete")
	}
	// Deleting a missing key is a no-op.
	if err := kv.Delete("k"); err != nil {
		t.Errorf("Delete(missing) = %v, want nil", err)
	}
}

func TestFileKVCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, kvFileName), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}

	// A corrupt store must open empty, not fail.
	kv := OpenFileKV(dir)
	if _, ok := kv.Read("anything"); ok {
		t.Error("corrupt store returned a value")
	}
	if err := kv.Write("k", "v"); err != nil {
		t.Errorf("Write after corrupt open: %v", err)
	}
}
