package types

import "errors"

// Common errors. Callers match these with errors.Is; lower layers wrap
// them with fmt.Errorf("...: %w", ...) to add detail.
var (
	ErrChainNotSupported = errors.New("chain not supported")
	ErrTokenNotFound     = errors.New("token not found")
	ErrInvalidAddress    = errors.New("invalid address")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrProviderFailure   = errors.New("provider failure")
	ErrPluginExists      = errors.New("plugin already registered")
	ErrToolNameTaken     = errors.New("tool name already registered")
	ErrToolNamePrefix    = errors.New("tool name missing required prefix")
	ErrRegistryFrozen    = errors.New("registry is frozen")
	ErrToolNotFound      = errors.New("tool not found")
)
