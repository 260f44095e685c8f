package notify_test

import (
	"testing"

	"github.com/karaobingo/stagepass/internal/notify"
)

func TestSubscribeAndPublish(t *testing.T) {
	n := notify.New(nil)

	var rowChanges, entityChanges []notify.Change
	n.Subscribe("tickets", "tck-000001", func(ch notify.Change) {
		rowChanges = append(rowChanges, ch)
	})
	n.Subscribe("tickets", "", func(ch notify.Change) {
		entityChanges = append(entityChanges, ch)
	})

	n.Publish(notify.Change{Entity: "tickets", ID: "tck-000001", Type: "update"})
	n.Publish(notify.Change{Entity: "tickets", ID: "tck-000002", Type: "insert"})
	n.Publish(notify.Change{Entity: "balances", ID: "42", Type: "update"})

	if len(rowChanges) != 1 {
		t.Errorf("row subscriber got %d changes, want 1", len(rowChanges))
	}
	if len(entityChanges) != 2 {
		t.Errorf("entity subscriber got %d changes, want 2", len(entityChanges))
	}
	if rowChanges[0].At.IsZero() {
		t.Error("At should be filled in on publish")
	}
}

func TestUnsubscribe(t *testing.T) {
	n := notify.New(nil)

	calls := 0
	cancel := n.Subscribe("balances", "42", func(notify.Change) { calls++ })

	n.Publish(notify.Change{Entity: "balances", ID: "42", Type: "update"})
	cancel()
	n.Publish(notify.Change{Entity: "balances", ID: "42", Type: "update"})

	if calls != 1 {
		t.Errorf("expected 1 delivery after unsubscribe, got %d", calls)
	}
}

func TestDeliveryLog(t *testing.T) {
	n := notify.New(nil)
	n.Subscribe("tickets", "", func(notify.Change) {})
	n.Subscribe("tickets", "", func(notify.Change) {})

	n.Publish(notify.Change{Entity: "tickets", ID: "tck-000001", Type: "update"})

	deliveries := n.Deliveries()
	if len(deliveries) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(deliveries))
	}
	if deliveries[0].ChangeID != "tickets:tck-000001" {
		t.Errorf("change id = %q", deliveries[0].ChangeID)
	}
	if deliveries[0].Subscriber == deliveries[1].Subscriber {
		t.Error("expected distinct subscriber ids")
	}

	n.Reset()
	if len(n.Deliveries()) != 0 {
		t.Error("Reset should clear the delivery log")
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	n := notify.New(nil)
	// Must not panic or record deliveries.
	n.Publish(notify.Change{Entity: "tickets", ID: "x", Type: "delete"})
	if len(n.Deliveries()) != 0 {
		t.Errorf("expected no deliveries, got %d", len(n.Deliveries()))
	}
}
