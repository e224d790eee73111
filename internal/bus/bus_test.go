package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	b, err := New(nil)
	require.NoError(t, err)
	return b
}

func TestPublishRunsHandlersInOrder(t *testing.T) {
	b := newTestBus(t)

	var calls []string
	On(b, func(ctx context.Context, m Refresh) error {
		calls = append(calls, "first:"+m.Source)
		return nil
	})
	On(b, func(ctx context.Context, m Refresh) error {
		calls = append(calls, "second:"+m.Source)
		return nil
	})

	require.NoError(t, b.Publish(context.Background(), Refresh{Source: SourceRecordForm}))
	assert.Equal(t, []string{"first:editor:record", "second:editor:record"}, calls)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	b := newTestBus(t)
	assert.False(t, b.HasSubscribers(CmdSelect))
	assert.NoError(t, b.Publish(context.Background(), Select{}))
}

func TestPublishJoinsErrors(t *testing.T) {
	b := newTestBus(t)
	errA := errors.New("a")

	ran := false
	On(b, func(ctx context.Context, m CursorOut) error { return errA })
	On(b, func(ctx context.Context, m CursorOut) error {
		ran = true
		return nil
	})

	err := b.Publish(context.Background(), CursorOut{})
	assert.ErrorIs(t, err, errA)
	assert.True(t, ran)
}

func TestNestedPublishCompletesBeforeReturn(t *testing.T) {
	b := newTestBus(t)

	var trace []Command
	On(b, func(ctx context.Context, m Select) error {
		trace = append(trace, CmdSelect)
		return b.Publish(ctx, Highlight{Record: m.Record})
	})
	On(b, func(ctx context.Context, m Highlight) error {
		trace = append(trace, CmdHighlight)
		return nil
	})
	On(b, func(ctx context.Context, m Select) error {
		trace = append(trace, "select:after")
		return nil
	})

	require.NoError(t, b.Publish(context.Background(), Select{}))
	assert.Equal(t, []Command{CmdSelect, CmdHighlight, "select:after"}, trace)
}

func TestCommandNames(t *testing.T) {
	assert.Equal(t, Command("editor:records:navToList"), RecordsNavToList{}.Command())
	assert.Equal(t, Command("presenter:deactivate"), PresenterDeactivate{}.Command())
	assert.Equal(t, Command("refresh"), Refresh{}.Command())
}
