package eventstream

import "errors"

// ErrNilTurnEvent is returned by publishers handed a nil *TurnCompletedEvent.
var ErrNilTurnEvent = errors.New("turn event is nil")
