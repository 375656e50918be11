package devices

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockUnlockWithValidCode(t *testing.T) {
	d := newTestDevice(t, "lock", Options{})

	result := d.ExecuteCommand(context.Background(), Command{
		Name:       "unlock",
		Parameters: map[string]interface{}{"code": "1234"},
	})

	require.True(t, result.Success)
	assert.Equal(t, "default", result.Result["user"])
	state := d.State()
	assert.False(t, state["locked"].(bool))
	assert.Equal(t, "default", state["last_user"])
}

func TestLockCodelessUnlockTrustsCallerIdentity(t *testing.T) {
	d := newTestDevice(t, "lock", Options{})
	ctx := context.Background()

	result := d.ExecuteCommand(ctx, Command{
		Name:       "unlock",
		Parameters: map[string]interface{}{"user": "alice"},
	})
	require.True(t, result.Success)
	assert.Equal(t, "alice", result.Result["user"])
	state := d.State()
	assert.False(t, state["locked"].(bool))
	assert.Equal(t, "alice", state["last_user"])

	require.True(t, d.ExecuteCommand(ctx, Command{Name: "lock"}).Success)

	result = d.ExecuteCommand(ctx, Command{Name: "unlock"})
	require.True(t, result.Success)
	assert.Equal(t, "api", d.State()["last_user"], "anonymous unlock falls back to the api identity")
}

func TestLockUnlockRejectsMalformedCode(t *testing.T) {
	d := newTestDevice(t, "lock", Options{})

	result := d.ExecuteCommand(context.Background(), Command{
		Name:       "unlock",
		Parameters: map[string]interface{}{"code": 1234},
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "code must be a non-empty string")
	assert.True(t, d.State()["locked"].(bool))
}

func TestLockInvalidCodeEmitsErrorEvent(t *testing.T) {
	d := newTestDevice(t, "lock", Options{})
	drainEvents(d)

	result := d.ExecuteCommand(context.Background(), Command{
		Name:       "unlock",
		Parameters: map[string]interface{}{"code": "0000"},
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "invalid access code")
	assert.True(t, d.State()["locked"].(bool))

	ev := nextEvent(t, d)
	assert.Equal(t, EventError, ev.Type)
	assert.Equal(t, "invalid_code", ev.Data["reason"])
	assert.Equal(t, "unlock", ev.Data["command"])
}

func TestLockAutoRelockAfterDelay(t *testing.T) {
	d := newTestDevice(t, "lock", Options{})
	d.MergeState(map[string]interface{}{"auto_lock_delay": 0.05})

	result := d.ExecuteCommand(context.Background(), Command{
		Name:       "unlock",
		Parameters: map[string]interface{}{"code": "1234"},
	})
	require.True(t, result.Success)
	require.False(t, d.State()["locked"].(bool))

	assert.Eventually(t, func() bool {
		return d.State()["locked"].(bool)
	}, 2*time.Second, 10*time.Millisecond, "lock should re-engage on its own")
}

func TestLockDisablingAutoLockCancelsPendingRelock(t *testing.T) {
	d := newTestDevice(t, "lock", Options{})
	d.MergeState(map[string]interface{}{"auto_lock_delay": 0.1})
	ctx := context.Background()

	require.True(t, d.ExecuteCommand(ctx, Command{
		Name:       "unlock",
		Parameters: map[string]interface{}{"code": "1234"},
	}).Success)
	require.True(t, d.ExecuteCommand(ctx, Command{
		Name:       "set_auto_lock",
		Parameters: map[string]interface{}{"enabled": false},
	}).Success)

	time.Sleep(250 * time.Millisecond)
	assert.False(t, d.State()["locked"].(bool), "cancelled relock must not fire")
}

func TestLockSetAutoLockValidatesDelay(t *testing.T) {
	d := newTestDevice(t, "lock", Options{})

	result := d.ExecuteCommand(context.Background(), Command{
		Name:       "set_auto_lock",
		Parameters: map[string]interface{}{"enabled": true, "delay": -5},
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "positive number of seconds")
}

func TestLockJamBlocksBoltUntilCleared(t *testing.T) {
	d := newTestDevice(t, "lock", Options{})
	d.MergeState(map[string]interface{}{"jammed": true})
	ctx := context.Background()

	for _, name := range []string{"lock", "unlock"} {
		result := d.ExecuteCommand(ctx, Command{
			Name:       name,
			Parameters: map[string]interface{}{"code": "1234"},
		})
		assert.False(t, result.Success, "%s must fail while jammed", name)
		assert.Contains(t, result.Error, "device_jammed")
	}

	require.True(t, d.ExecuteCommand(ctx, Command{Name: "clear_jam"}).Success)
	assert.True(t, d.ExecuteCommand(ctx, Command{Name: "lock"}).Success)
}

func TestLockVacationModeForcesAndHoldsLock(t *testing.T) {
	d := newTestDevice(t, "lock", Options{})
	ctx := context.Background()

	require.True(t, d.ExecuteCommand(ctx, Command{
		Name:       "unlock",
		Parameters: map[string]interface{}{"code": "1234"},
	}).Success)

	result := d.ExecuteCommand(ctx, Command{
		Name:       "set_vacation_mode",
		Parameters: map[string]interface{}{"enabled": true},
	})
	require.True(t, result.Success)
	assert.True(t, d.State()["locked"].(bool), "enabling vacation mode locks the door")

	result = d.ExecuteCommand(ctx, Command{
		Name:       "unlock",
		Parameters: map[string]interface{}{"code": "1234"},
	})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "vacation_mode_active")
}

func TestLockAccessCodeManagement(t *testing.T) {
	d := newTestDevice(t, "lock", Options{})
	ctx := context.Background()

	result := d.ExecuteCommand(ctx, Command{
		Name:       "add_code",
		Parameters: map[string]interface{}{"code": "9999", "name": "guest"},
	})
	require.True(t, result.Success)
	assert.Equal(t, 2, result.Result["codes"])

	result = d.ExecuteCommand(ctx, Command{
		Name:       "unlock",
		Parameters: map[string]interface{}{"code": "9999"},
	})
	require.True(t, result.Success)
	assert.Equal(t, "guest", d.State()["last_user"])

	result = d.ExecuteCommand(ctx, Command{
		Name:       "remove_code",
		Parameters: map[string]interface{}{"code": "9999"},
	})
	require.True(t, result.Success)
	assert.Equal(t, 1, result.Result["codes"])

	result = d.ExecuteCommand(ctx, Command{
		Name:       "remove_code",
		Parameters: map[string]interface{}{"code": "9999"},
	})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "unknown access code")
}

func TestLockCodeSlotsExhausted(t *testing.T) {
	d := newTestDevice(t, "lock", Options{})
	d.MergeAttributes(map[string]interface{}{"max_codes": 1})
	ctx := context.Background()

	result := d.ExecuteCommand(ctx, Command{
		Name:       "add_code",
		Parameters: map[string]interface{}{"code": "5678"},
	})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "access code slots exhausted")

	// Renaming an existing code does not consume a slot.
	result = d.ExecuteCommand(ctx, Command{
		Name:       "add_code",
		Parameters: map[string]interface{}{"code": "1234", "name": "admin"},
	})
	require.True(t, result.Success)
	assert.Equal(t, 1, result.Result["codes"])
}

func TestLockBatteryDrainsOnUpdate(t *testing.T) {
	d := newTestDevice(t, "lock", Options{})

	d.ForceUpdate()

	assert.InDelta(t, 99.95, d.State()["battery_level"].(float64), 0.001)
}
