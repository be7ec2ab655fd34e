package signaling

import "github.com/ArnoKim89/arno-game-server/internal/apperr"

// Client-visible failures. The code is the `code` field of the JSON error reply.
var (
	ErrAlreadyInRoom   = apperr.New(apperr.KindConflict, "already_in_room")
	ErrRateLimited     = apperr.New(apperr.KindRateLimited, "rate_limited")
	ErrInvalidRoomCode = apperr.New(apperr.KindInvalidInput, "invalid_room_code")
	ErrRoomNotFound    = apperr.New(apperr.KindNotFound, "room_not_found")
	ErrNotInRoom       = apperr.New(apperr.KindInvalidInput, "not_in_room")
	ErrBadSignal       = apperr.New(apperr.KindInvalidInput, "bad_signal")
	ErrPeerNotFound    = apperr.New(apperr.KindNotFound, "peer_not_found")
	ErrUnknownType     = apperr.New(apperr.KindInvalidInput, "unknown_type")
)
