package icm

import "testing"

func TestIsVisible(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"a.txt", true},
		{"docs/a.txt", true},
		{"", false},
		{".hidden", false},
		{"_private/a.txt", false},
		{"docs/.hidden/a.txt", false},
		{"bin/a.dll", false},
		{"BIN/a.dll", false},
		{"obj/debug/a.o", false},
		{".vs/state", false},
		{"packages/foo", false},
		{"apppackages/foo", false},
		{"docs/desktop.ini", false},
		{"docs/Desktop.INI", false},
		{"docs/app.desktop", false},
		{"docs//a.txt", false},
	}

	for _, tc := range cases {
		if got := IsVisible(tc.path); got != tc.want {
			t.Errorf("IsVisible(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestIsUnderCloudCache(t *testing.T) {
	if !IsUnderCloudCache(".cloud_cache") {
		t.Error("expected .cloud_cache to be under itself")
	}

	if !IsUnderCloudCache(".cloud_cache/user123.Deleted") {
		t.Error("expected nested path to be under .cloud_cache")
	}

	if IsUnderCloudCache("cloud_cache/other") {
		t.Error("did not expect unrelated path to be under .cloud_cache")
	}

	if IsUnderCloudCache("docs/a.txt") {
		t.Error("did not expect ordinary path to be under .cloud_cache")
	}
}

func TestIsPDILFile(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{".cloud_cache/user123.Deleted", true},
		{".cloud_cache/.Deleted", false},
		{".cloud_cache", false},
		{".cloud_cache/notes.txt", false},
		{".cloud_cache/sub/user123.Deleted", false},
		{"docs/user123.Deleted", false},
	}

	for _, tc := range cases {
		if got := IsPDILFile(tc.path); got != tc.want {
			t.Errorf("IsPDILFile(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}
