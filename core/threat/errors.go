package threat

import "errors"

// ErrInvalidAllowList is returned when an allow-list entry is neither an IP
// address nor a CIDR prefix.
var ErrInvalidAllowList = errors.New("threat: invalid allow-list entry")
