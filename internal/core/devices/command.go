package devices

import "time"

// Command is a request to change device state or trigger an action.
type Command struct {
	Name       string                 `json:"name"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// CommandResult is the structured outcome of a command execution. Failed
// commands report Success=false with a human-readable Error and never
// panic the caller.
type CommandResult struct {
	Success     bool                   `json:"success"`
	DeviceID    string                 `json:"device_id"`
	Command     string                 `json:"command"`
	Result      map[string]interface{} `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
	ProcessedAt time.Time              `json:"processed_at"`
	Duration    time.Duration          `json:"duration"`
}

func failureResult(deviceID, command string, started time.Time, errMsg string) CommandResult {
	return CommandResult{
		Success:     false,
		DeviceID:    deviceID,
		Command:     command,
		Error:       errMsg,
		ProcessedAt: time.Now(),
		Duration:    time.Since(started),
	}
}

func successResult(deviceID, command string, started time.Time, result map[string]interface{}) CommandResult {
	return CommandResult{
		Success:     true,
		DeviceID:    deviceID,
		Command:     command,
		Result:      result,
		ProcessedAt: time.Now(),
		Duration:    time.Since(started),
	}
}
