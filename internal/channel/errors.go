package channel

import "errors"

// Command failures recovered at the session boundary. They are reported to
// the originating connection only and never crash the session loop.
var (
	ErrNotFound     = errors.New("playlist item not found")
	ErrNoActiveItem = errors.New("no active playlist item")
	ErrValidation   = errors.New("invalid message content")
	ErrUnauthorized = errors.New("operation not permitted for this viewer")
	ErrClosed       = errors.New("channel closed")
)

// ErrorCode maps a command failure onto the wire-level error code carried by
// an ERROR envelope.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrNoActiveItem):
		return "NoActiveItem"
	case errors.Is(err, ErrValidation):
		return "ValidationFailure"
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, ErrClosed):
		return "ChannelClosed"
	default:
		return "Internal"
	}
}
