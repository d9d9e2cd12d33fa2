package notify

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFailure struct {
	op       string
	message  string
	business bool
}

func (f *fakeFailure) Error() string       { return f.op + " failed" }
func (f *fakeFailure) Operation() string   { return f.op }
func (f *fakeFailure) UserMessage() string { return f.message }
func (f *fakeFailure) Business() bool      { return f.business }

func TestFailureUsesUserMessage(t *testing.T) {
	c := NewCenter(10)

	c.Failure(errors.Wrap(&fakeFailure{op: "list_inventory", message: "No se pudieron obtener los datos de inventario"}, "reload"))
	c.Failure(&fakeFailure{op: "start_production", message: "Stock insuficiente", business: true})
	c.Failure(errors.New("boom"))
	c.Failure(nil)

	items := c.List()
	require.Len(t, items, 3)

	assert.Equal(t, LevelError, items[0].Level)
	assert.Equal(t, "list_inventory", items[0].Op)
	assert.Equal(t, "No se pudieron obtener los datos de inventario", items[0].Message)

	assert.Equal(t, LevelBusiness, items[1].Level)
	assert.Equal(t, "Stock insuficiente", items[1].Message)

	assert.Equal(t, LevelError, items[2].Level)
	assert.Equal(t, "boom", items[2].Message)
	assert.Empty(t, items[2].Op)
}

func TestListKeepsNewestWithinLimit(t *testing.T) {
	c := NewCenter(2)
	fixed := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	c.nowFn = func() time.Time { return fixed }

	c.Info("a", "uno")
	c.Info("b", "dos")
	c.Info("c", "tres")

	items := c.List()
	require.Len(t, items, 2)
	assert.Equal(t, "dos", items[0].Message)
	assert.Equal(t, "tres", items[1].Message)
	assert.Equal(t, fixed, items[1].At)
	assert.NotEqual(t, items[0].ID, items[1].ID)
}

func TestSubscribeReceivesUntilStopped(t *testing.T) {
	c := NewCenter(10)
	ch, stop := c.Subscribe()

	c.Info("create_product", "Producto creado")

	select {
	case n := <-ch:
		assert.Equal(t, LevelInfo, n.Level)
		assert.Equal(t, "Producto creado", n.Message)
	case <-time.After(time.Second):
		t.Fatal("notification not delivered")
	}

	stop()
	stop()
	_, open := <-ch
	assert.False(t, open)

	c.Info("create_product", "otra")
	assert.Len(t, c.List(), 2)
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	c := NewCenter(100)
	_, stop := c.Subscribe()
	defer stop()

	for i := 0; i < 50; i++ {
		c.Info("op", "msg")
	}
	assert.Len(t, c.List(), 50)
}
