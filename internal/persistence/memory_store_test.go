package persistence

import (
	"context"
	"testing"

	"github.com/petrijr/formflow/pkg/api"
)

func TestMemoryBackend_Contract(t *testing.T) {
	runStorageContract(t, NewMemoryBackend())
}

func TestMemoryBackend_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	s := b.Storage("k")

	in := api.Values{"name": {"a"}}
	if err := s.SetStepData(ctx, "0", in); err != nil {
		t.Fatalf("SetStepData failed: %v", err)
	}
	in["name"][0] = "mutated"

	out, err := s.StepData(ctx, "0")
	if err != nil {
		t.Fatalf("StepData failed: %v", err)
	}
	if out.Get("name") != "a" {
		t.Fatalf("expected stored copy to be unaffected, got %q", out.Get("name"))
	}

	out["name"] = []string{"changed"}
	again, _ := s.StepData(ctx, "0")
	if again.Get("name") != "a" {
		t.Fatalf("expected read copy to be detached, got %q", again.Get("name"))
	}
}

func TestMemoryBackend_ResetDropsSession(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	s := b.Storage("k")

	if err := s.SetCurrentStep(ctx, "1"); err != nil {
		t.Fatalf("SetCurrentStep failed: %v", err)
	}
	if b.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", b.Len())
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if b.Len() != 0 {
		t.Fatalf("expected no sessions after reset, got %d", b.Len())
	}
}

func TestValidSessionKey(t *testing.T) {
	valid := []string{"abc", "6f1c4c3e-7d0b-4c53-9a0e-3b9b8f0b8a11", "user:42"}
	for _, k := range valid {
		if !ValidSessionKey(k) {
			t.Fatalf("expected %q to be valid", k)
		}
	}
	invalid := []string{"", "has space", "semi;colon", string(make([]byte, 129))}
	for _, k := range invalid {
		if ValidSessionKey(k) {
			t.Fatalf("expected %q to be invalid", k)
		}
	}
}
