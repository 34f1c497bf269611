package eventlog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"yieldsplit/core/events"
	"yieldsplit/core/types"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	log, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "events.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })
	return log
}

func TestAppendAndList(t *testing.T) {
	log := openTestLog(t)
	ctx := context.Background()

	log.Emit(events.Raw{Payload: &types.Event{Type: "vault.deposited", Height: 7, Attributes: map[string]string{"amount": "100"}}})
	log.Emit(events.Raw{Payload: &types.Event{Type: "vault.synced", Height: 8, Attributes: map[string]string{"reward": "5"}}})
	log.Emit(events.Raw{Payload: &types.Event{Type: "vault.deposited", Height: 9}})

	all, err := log.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, uint64(9), all[0].Height)

	deposits, err := log.List(ctx, "vault.deposited", 10)
	require.NoError(t, err)
	require.Len(t, deposits, 2)
	evt, err := deposits[1].Event()
	require.NoError(t, err)
	require.Equal(t, "100", evt.Attributes["amount"])
	require.Equal(t, uint64(7), evt.Height)
	require.NotEqual(t, deposits[0].UID, deposits[1].UID)

	limited, err := log.List(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestAppendRejectsUntypedEvent(t *testing.T) {
	log := openTestLog(t)
	require.Error(t, log.Append(context.Background(), &types.Event{}))
	require.Error(t, log.Append(context.Background(), nil))
	log.Emit(events.Raw{})

	records, err := log.List(context.Background(), "", 0)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "dsn", nil)
	require.ErrorIs(t, err, ErrUnknownDriver)
}

func TestRecordsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	first, err := Open(DriverSQLite, path, nil)
	require.NoError(t, err)
	require.NoError(t, first.Append(context.Background(), &types.Event{Type: "bonds.created", Height: 1}))
	require.NoError(t, first.Close())

	second, err := Open(DriverSQLite, path, nil)
	require.NoError(t, err)
	defer second.Close()
	records, err := second.List(context.Background(), "bonds.created", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
}
