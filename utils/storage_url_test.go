package utils

import "testing"

func TestBuildObjectAccessURL(t *testing.T) {
	t.Setenv("STORAGE_ACCESS_BASE_URL", "")
	t.Setenv("STORAGE_PROVIDER", "gcs")
	t.Setenv("GCS_URL", "storage.googleapis.com")
	t.Setenv("GCS_BUCKET", "sync-files")

	if got := BuildObjectAccessURL("7/deals/a.pdf"); got != "https://storage.googleapis.com/sync-files/7/deals/a.pdf" {
		t.Fatalf("unexpected gcs url %q", got)
	}

	t.Setenv("STORAGE_ACCESS_BASE_URL", "https://cdn.example.com/files?key=")
	if got := BuildObjectAccessURL("7/deals/a b.pdf"); got != "https://cdn.example.com/files?key=7%2Fdeals%2Fa+b.pdf" {
		t.Fatalf("unexpected query url %q", got)
	}

	t.Setenv("STORAGE_ACCESS_BASE_URL", "https://cdn.example.com/{objectKey}")
	if got := BuildObjectAccessURL("7/x.png"); got != "https://cdn.example.com/7/x.png" {
		t.Fatalf("unexpected placeholder url %q", got)
	}

	t.Setenv("STORAGE_ACCESS_BASE_URL", "")
	t.Setenv("STORAGE_PROVIDER", "minio")
	t.Setenv("SP_URL", "nyc3.digitaloceanspaces.com")
	t.Setenv("SP_BUCKET", "sync")
	if got := BuildObjectAccessURL("7/x.png"); got != "https://sync.nyc3.digitaloceanspaces.com/7/x.png" {
		t.Fatalf("unexpected spaces url %q", got)
	}
}

func TestSafeObjectKey(t *testing.T) {
	cases := map[string]bool{
		"7/deals/a.pdf":    true,
		"":                 false,
		"/etc/passwd":      false,
		"7/../8/deals.pdf": false,
	}
	for key, want := range cases {
		if got := SafeObjectKey(key); got != want {
			t.Fatalf("SafeObjectKey(%q) = %v, want %v", key, got, want)
		}
	}
}
