package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/clock"
	"github.com/DASHRATH2003/adminpanalaplication-sub000/pkg/docstore"
)

var start = time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)

func TestCreateResolvesServerTimestampAndFiresTrigger(t *testing.T) {
	s := New(clock.NewFake(start))
	ctx := context.Background()

	var fired []docstore.Event
	s.OnCreate("users/{userId}/messages/{messageId}", func(_ context.Context, ev docstore.Event) {
		fired = append(fired, ev)
	})

	id, err := s.Create(ctx, "users/U1/messages", map[string]interface{}{
		"message":   "hi",
		"timestamp": docstore.ServerTimestamp,
	})
	require.NoError(t, err)
	require.Len(t, fired, 1)
	assert.Equal(t, id, fired[0].ID)
	assert.Equal(t, start, fired[0].Data["timestamp"])

	doc, err := s.Get(ctx, "users/U1/messages", id)
	require.NoError(t, err)
	assert.Equal(t, "hi", doc.Data["message"])

	missing, err := s.Get(ctx, "users/U1/messages", "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInvalidPaths(t *testing.T) {
	s := New(clock.NewFake(start))
	ctx := context.Background()

	_, err := s.Create(ctx, "users/U1", map[string]interface{}{})
	assert.ErrorIs(t, err, docstore.ErrInvalidPath)
	assert.ErrorIs(t, s.Update(ctx, "users", "", nil, true), docstore.ErrInvalidPath)
}

func TestUpdateMergeAndReplace(t *testing.T) {
	s := New(clock.NewFake(start))
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, "users", "U1", map[string]interface{}{"a": 1, "b": 2}, true))
	require.NoError(t, s.Update(ctx, "users", "U1", map[string]interface{}{"b": 3}, true))
	doc, _ := s.Get(ctx, "users", "U1")
	assert.Equal(t, map[string]interface{}{"a": 1, "b": 3}, doc.Data)

	require.NoError(t, s.Update(ctx, "users", "U1", map[string]interface{}{"c": 4}, false))
	doc, _ = s.Get(ctx, "users", "U1")
	assert.Equal(t, map[string]interface{}{"c": 4}, doc.Data)
}

func TestQueryFilterOrderLimit(t *testing.T) {
	clk := clock.NewFake(start)
	s := New(clk)
	ctx := context.Background()

	for i, name := range []string{"a", "b", "c"} {
		clk.Advance(time.Minute)
		_, err := s.Create(ctx, "conversations", map[string]interface{}{
			"name": name,
			"kind": map[bool]string{true: "even", false: "odd"}[i%2 == 0],
			"at":   docstore.ServerTimestamp,
		})
		require.NoError(t, err)
	}

	docs, err := s.Query(ctx, "conversations", docstore.Query{OrderBy: "at", Dir: docstore.Desc, Limit: 2})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "c", docs[0].Data["name"])
	assert.Equal(t, "b", docs[1].Data["name"])

	docs, err = s.Query(ctx, "conversations", docstore.Where("kind", "even"))
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestSubscriptions(t *testing.T) {
	s := New(clock.NewFake(start))
	ctx := context.Background()

	var docCalls []*docstore.Doc
	stopDoc, err := s.SubscribeDoc(ctx, "users", "U1", func(d *docstore.Doc) { docCalls = append(docCalls, d) })
	require.NoError(t, err)

	var queryCalls [][]docstore.Doc
	stopQuery, err := s.SubscribeQuery(ctx, "users/U1/messages", docstore.Query{}, func(d []docstore.Doc) {
		queryCalls = append(queryCalls, d)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Subscribers())

	require.NoError(t, s.Update(ctx, "users", "U1", map[string]interface{}{"isOnline": true}, true))
	_, err = s.Create(ctx, "users/U1/messages", map[string]interface{}{"message": "x"})
	require.NoError(t, err)
	_, err = s.Create(ctx, "users/U2/messages", map[string]interface{}{"message": "y"})
	require.NoError(t, err)

	require.Len(t, docCalls, 2)
	assert.Nil(t, docCalls[0])
	assert.Equal(t, true, docCalls[1].Data["isOnline"])
	require.Len(t, queryCalls, 2)
	assert.Len(t, queryCalls[1], 1)

	stopDoc()
	stopDoc()
	stopQuery()
	assert.Zero(t, s.Subscribers())
}

func TestFaultInjection(t *testing.T) {
	s := New(clock.NewFake(start))
	ctx := context.Background()
	s.SetFault(func(op Op, collection string) error {
		if op == OpCreate && collection == "conversations" {
			return assert.AnError
		}
		return nil
	})

	_, err := s.Create(ctx, "conversations", map[string]interface{}{})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, s.Len("conversations"))
	_, err = s.Create(ctx, "users/U1/messages", map[string]interface{}{})
	assert.NoError(t, err)
}
