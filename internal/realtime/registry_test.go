package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/example/medilink/internal/application"
)

func TestRegistry_JoinLeave(t *testing.T) {
	t.Parallel()

	t.Run("tracks connections per provider", func(t *testing.T) {
		t.Parallel()

		registry := NewRegistry(nil)
		first := registry.Join("provider-1")
		second := registry.Join("provider-1")
		registry.Join("provider-2")

		if got := registry.Connections("provider-1"); got != 2 {
			t.Fatalf("expected 2 connections, got %d", got)
		}

		registry.Leave(first)
		if got := registry.Connections("provider-1"); got != 1 {
			t.Fatalf("expected 1 connection after leave, got %d", got)
		}

		registry.Leave(second)
		if got := registry.Connections("provider-1"); got != 0 {
			t.Fatalf("expected 0 connections, got %d", got)
		}
	})

	t.Run("leaving twice is a no-op", func(t *testing.T) {
		t.Parallel()

		registry := NewRegistry(nil)
		binding := registry.Join("provider-1")

		registry.Leave(binding)
		registry.Leave(binding)

		select {
		case <-binding.Done():
		default:
			t.Fatal("expected Done to be closed after leave")
		}
	})
}

func TestRegistry_Deliver(t *testing.T) {
	t.Parallel()

	alert := application.Alert{ID: "alert-1", ProviderID: "provider-1", PatientID: "patient-1", Message: "Critical patient case detected"}

	t.Run("pushes to every connection of the provider", func(t *testing.T) {
		t.Parallel()

		registry := NewRegistry(nil)
		first := registry.Join("provider-1")
		second := registry.Join("provider-1")
		other := registry.Join("provider-2")

		if err := registry.Deliver(context.Background(), "provider-1", alert); err != nil {
			t.Fatalf("Deliver failed: %v", err)
		}

		for _, binding := range []*Binding{first, second} {
			select {
			case got := <-binding.Alerts():
				if got.ID != "alert-1" {
					t.Fatalf("expected alert-1, got %s", got.ID)
				}
			case <-time.After(time.Second):
				t.Fatal("expected alert on binding")
			}
		}

		select {
		case got := <-other.Alerts():
			t.Fatalf("unexpected alert for provider-2: %v", got)
		default:
		}
	})

	t.Run("succeeds with no live connections", func(t *testing.T) {
		t.Parallel()

		registry := NewRegistry(nil)
		if err := registry.Deliver(context.Background(), "provider-1", alert); err != nil {
			t.Fatalf("expected nil for offline provider, got %v", err)
		}
	})

	t.Run("does not push to a connection that left", func(t *testing.T) {
		t.Parallel()

		registry := NewRegistry(nil)
		binding := registry.Join("provider-1")
		registry.Leave(binding)

		if err := registry.Deliver(context.Background(), "provider-1", alert); err != nil {
			t.Fatalf("Deliver failed: %v", err)
		}
		select {
		case got := <-binding.Alerts():
			t.Fatalf("unexpected alert after leave: %v", got)
		default:
		}
	})

	t.Run("reports an error when every buffer is full", func(t *testing.T) {
		t.Parallel()

		registry := NewRegistry(nil)
		registry.Join("provider-1")

		for i := 0; i < bindingBuffer; i++ {
			if err := registry.Deliver(context.Background(), "provider-1", alert); err != nil {
				t.Fatalf("Deliver %d failed: %v", i, err)
			}
		}

		if err := registry.Deliver(context.Background(), "provider-1", alert); err == nil {
			t.Fatal("expected an error once the buffer is exhausted")
		}
	})
}
