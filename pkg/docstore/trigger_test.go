package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterDispatchMatchesPatterns(t *testing.T) {
	r := NewRouter()
	var got []Event
	r.OnCreate("conversations/{conversationId}/messages/{messageId}", func(_ context.Context, ev Event) {
		got = append(got, ev)
	})
	r.OnCreate("users/{userId}/messages/{messageId}", func(_ context.Context, ev Event) {
		got = append(got, ev)
	})

	data := map[string]interface{}{"message": "hi"}
	n := r.Dispatch(context.Background(), "users/U1/messages", "M1", data)
	require.Equal(t, 1, n)
	assert.Equal(t, map[string]string{"userId": "U1", "messageId": "M1"}, got[0].Params)
	assert.Equal(t, "users/U1/messages/M1", got[0].Path())

	got[0].Data["message"] = "changed"
	assert.Equal(t, "hi", data["message"], "handlers get a copy")

	assert.Zero(t, r.Dispatch(context.Background(), "users", "U1", nil))
	assert.Zero(t, r.Dispatch(context.Background(), "orders/O1/messages", "M1", nil))
}

func TestRouterLeaves(t *testing.T) {
	r := NewRouter()
	r.OnCreate("conversations/{c}/messages/{m}", func(context.Context, Event) {})
	r.OnCreate("users/{u}/messages/{m}", func(context.Context, Event) {})
	r.OnCreate("orders/{o}", func(context.Context, Event) {})

	assert.ElementsMatch(t, []string{"messages", "orders"}, r.Leaves())
}

func TestSplitDocPath(t *testing.T) {
	coll, id, err := SplitDocPath("users/U1/messages/M1")
	require.NoError(t, err)
	assert.Equal(t, "users/U1/messages", coll)
	assert.Equal(t, "M1", id)

	_, _, err = SplitDocPath("users/U1/messages")
	assert.ErrorIs(t, err, ErrInvalidPath)
}
