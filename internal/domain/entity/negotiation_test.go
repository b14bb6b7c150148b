package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsResponseStatus(t *testing.T) {
	assert.True(t, IsResponseStatus(NegotiationAccepted))
	assert.True(t, IsResponseStatus(NegotiationRejected))
	assert.True(t, IsResponseStatus(NegotiationCountered))
	assert.False(t, IsResponseStatus(NegotiationPending))
	assert.False(t, IsResponseStatus("approved"))
	assert.False(t, IsResponseStatus(""))
}

func TestCounterChangesOnlyPrice(t *testing.T) {
	original := &Negotiation{
		ProductName:   "Tomatoes",
		OriginalPrice: 30,
		ProposedPrice: 25,
		Quantity:      200,
		Status:        NegotiationPending,
	}

	counter := original.Counter(27)

	assert.Equal(t, "Tomatoes", counter.ProductName)
	assert.Equal(t, 30.0, counter.OriginalPrice)
	assert.Equal(t, 27.0, counter.ProposedPrice)
	assert.Equal(t, 200, counter.Quantity)
	assert.Equal(t, NegotiationPending, counter.Status)

	// The original offer is untouched.
	assert.Equal(t, 25.0, original.ProposedPrice)
	assert.Equal(t, NegotiationPending, original.Status)
}

func TestSortMessagesTieBreaksOnID(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	messages := []*Message{
		{ID: "c", CreatedAt: ts.Add(time.Second)},
		{ID: "b", CreatedAt: ts},
		{ID: "a", CreatedAt: ts},
	}

	SortMessages(messages)

	assert.Equal(t, "a", messages[0].ID)
	assert.Equal(t, "b", messages[1].ID)
	assert.Equal(t, "c", messages[2].ID)
}
