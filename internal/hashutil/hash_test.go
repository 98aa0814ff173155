package hashutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestContentHash_KnownVector(t *testing.T) {
	got := ContentHashString("test")
	want := "sha256:9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
	if got != want {
		t.Fatalf("ContentHashString(%q) = %q, want %q", "test", got, want)
	}
}

func TestFileHash_MatchesContentHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.pdf")
	if err := os.WriteFile(path, []byte("test"), 0o644); err != nil {
		t.Fatal(err)
	}

	fileHash, err := FileHash(path)
	if err != nil {
		t.Fatal(err)
	}

	want := ContentHash([]byte("test"))
	if fileHash != want {
		t.Fatalf("FileHash = %q, want %q", fileHash, want)
	}
}

func TestValidFormat(t *testing.T) {
	cases := map[string]bool{
		"sha256:9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08": true,
		"sha256:abc":            false,
		"md5:9f86d081884c7d65":  false,
		"":                      false,
		"sha256:" + string(make([]byte, 64)): false, // NUL bytes, not hex
	}
	for in, want := range cases {
		if got := ValidFormat(in); got != want {
			t.Errorf("ValidFormat(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestChainHash_Derivation(t *testing.T) {
	childContent := ContentHashString("hello")
	parentChain := "sha256:X"

	got := ChainHash(childContent, parentChain)
	want := ContentHashString(childContent + "|" + parentChain)
	if got != want {
		t.Fatalf("ChainHash = %q, want %q", got, want)
	}
}

func TestSafeMinMax_Empty(t *testing.T) {
	if _, ok := SafeMin([]int{}); ok {
		t.Fatal("SafeMin on empty slice should report false")
	}
	if _, ok := SafeMax([]int{}); ok {
		t.Fatal("SafeMax on empty slice should report false")
	}
}

func TestSafeMinMax_LargeInput(t *testing.T) {
	const n = 1_200_000
	values := make([]int, n)
	for i := range values {
		values[i] = i
	}
	values[0], values[n-1] = values[n-1], values[0] // shuffle the extremes

	min, ok := SafeMin(values)
	if !ok || min != 0 {
		t.Fatalf("SafeMin = %d, %v, want 0, true", min, ok)
	}

	max, ok := SafeMax(values)
	if !ok || max != n-1 {
		t.Fatalf("SafeMax = %d, %v, want %d, true", max, ok, n-1)
	}
}
