package sockets

import (
	"errors"

	"github.com/OpenListTeam/wazero-netlink/manager/transport"
)

// UseAfterDestroyError is returned by every operation on a session that has
// already been disconnected.
type UseAfterDestroyError struct{}

func (*UseAfterDestroyError) Error() string {
	return "Cannot use NetLinkSocket that has already been destroyed."
}

// ErrDestroyed is the UseAfterDestroyError returned by sessions.
var ErrDestroyed error = &UseAfterDestroyError{}

func isNotSupported(err error) bool {
	var te *transport.Error
	return errors.As(err, &te) && te.Code == transport.ErrorCodeNotSupported
}
