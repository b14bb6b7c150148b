package farmlink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(id, tempID, content string, at time.Time) Message {
	return Message{ID: id, TempID: tempID, Content: content, CreatedAt: at}
}

func TestReconcilerDeduplicatesByID(t *testing.T) {
	r := NewReconciler("c1")
	ts := time.Now()

	r.LoadSnapshot([]Message{msg("m1", "", "hello", ts)})

	// The same message arrives again over the stream.
	r.Apply(msg("m1", "", "hello", ts))

	merged := r.Messages()
	require.Len(t, merged, 1)
	assert.Equal(t, "m1", merged[0].ID)
}

func TestReconcilerRetiresOptimisticEcho(t *testing.T) {
	r := NewReconciler("c1")
	ts := time.Now()

	r.AddOptimistic(msg("", "tmp-1", "on its way", ts))
	assert.Equal(t, 1, r.Pending())

	// Server confirms with the TempID echoed back.
	r.Apply(msg("m1", "tmp-1", "on its way", ts.Add(10*time.Millisecond)))

	merged := r.Messages()
	require.Len(t, merged, 1)
	assert.Equal(t, "m1", merged[0].ID)
	assert.Equal(t, 0, r.Pending())
}

func TestReconcilerSnapshotAbsorbsConfirmedEcho(t *testing.T) {
	r := NewReconciler("c1")
	ts := time.Now()

	r.AddOptimistic(msg("", "tmp-1", "hi", ts))

	// A refetched snapshot already contains the confirmed copy.
	r.LoadSnapshot([]Message{msg("m1", "tmp-1", "hi", ts)})

	merged := r.Messages()
	require.Len(t, merged, 1)
	assert.Equal(t, "m1", merged[0].ID)
	assert.Equal(t, 0, r.Pending())
}

func TestReconcilerKeepsUnconfirmedOptimistic(t *testing.T) {
	r := NewReconciler("c1")
	ts := time.Now()

	r.AddOptimistic(msg("", "tmp-9", "still pending", ts.Add(time.Second)))
	r.LoadSnapshot([]Message{msg("m1", "", "hello", ts)})

	merged := r.Messages()
	require.Len(t, merged, 2)
	assert.Equal(t, "m1", merged[0].ID)
	assert.Equal(t, "tmp-9", merged[1].TempID)
	assert.Equal(t, 1, r.Pending())
}

func TestReconcilerOrdersByCreatedAtThenID(t *testing.T) {
	r := NewReconciler("c1")
	ts := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	r.Apply(msg("b", "", "second", ts))
	r.Apply(msg("a", "", "first", ts))
	r.Apply(msg("c", "", "third", ts.Add(time.Minute)))

	merged := r.Messages()
	require.Len(t, merged, 3)
	assert.Equal(t, "a", merged[0].ID)
	assert.Equal(t, "b", merged[1].ID)
	assert.Equal(t, "c", merged[2].ID)
}

func TestReconcilerApplyUpdatesExisting(t *testing.T) {
	r := NewReconciler("c1")
	ts := time.Now()

	offer := msg("m1", "", "", ts)
	offer.Type = "negotiation"
	offer.Negotiation = &Negotiation{ProductName: "Tomatoes", ProposedPrice: 25, Quantity: 200, Status: "pending"}
	r.Apply(offer)

	// negotiation-update replaces the stored copy.
	offer.Negotiation = &Negotiation{ProductName: "Tomatoes", ProposedPrice: 25, Quantity: 200, Status: "accepted"}
	r.Apply(offer)

	merged := r.Messages()
	require.Len(t, merged, 1)
	assert.Equal(t, "accepted", merged[0].Negotiation.Status)
}
