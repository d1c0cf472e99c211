package team

import "errors"

// ErrTeamQuitting is returned by Do, Grow, and Shrink once Quit has been
// called. The operation fails synchronously with no side effect; state is
// unchanged.
var ErrTeamQuitting = errors.New("team: quit has already been requested")

// ErrInvalidGrowCount is returned by Grow when given a negative count.
var ErrInvalidGrowCount = errors.New("team: grow count must be >= 0")
