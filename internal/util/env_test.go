package util

import "testing"

func TestParseInt64Env(t *testing.T) {
	t.Setenv("TEST_INT64", " 911140605 ")
	if got := ParseInt64Env("TEST_INT64", 7); got != 911140605 {
		t.Errorf("got %d, want 911140605", got)
	}
	t.Setenv("TEST_INT64", "not-a-number")
	if got := ParseInt64Env("TEST_INT64", 7); got != 7 {
		t.Errorf("invalid value should return default, got %d", got)
	}
	if got := ParseInt64Env("TEST_INT64_UNSET", 7); got != 7 {
		t.Errorf("unset key should return default, got %d", got)
	}
}

func TestParseListEnv(t *testing.T) {
	t.Setenv("TEST_LIST", "grok-3, grok-2,,grok-beta ")
	got := ParseListEnv("TEST_LIST", nil)
	want := []string{"grok-3", "grok-2", "grok-beta"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d: got %q, want %q", i, got[i], want[i])
		}
	}
	t.Setenv("TEST_LIST", " , ")
	def := []string{"fallback"}
	got = ParseListEnv("TEST_LIST", def)
	if len(got) != 1 || got[0] != "fallback" {
		t.Errorf("blank list should return default, got %v", got)
	}
}
