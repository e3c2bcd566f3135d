package consts

import "time"

// Tunable Options
const (
	// DEFAULT_POLL_INTERVAL is the status poll interval when none is configured
	DEFAULT_POLL_INTERVAL = time.Second * 60
	// STATUS_REQUEST_TIMEOUT is the default timeout of one status round trip
	STATUS_REQUEST_TIMEOUT = time.Second * 10
	// RESTART_TIMEOUT is the default timeout of one service restart
	RESTART_TIMEOUT = time.Minute * 5
	// REDIS_TIMEOUT bounds every redis connect, read and write of the presence mirror
	REDIS_TIMEOUT = time.Second * 5
	// SIGNAL_RESTART_POLL_INTERVAL is how often the signal restarter checks whether signalled processes exited
	SIGNAL_RESTART_POLL_INTERVAL = time.Millisecond * 200

	// AUTOCOMPLETE_MAX_CHOICES is the maximum number of worlds returned by a world search
	AUTOCOMPLETE_MAX_CHOICES = 25

	// For Operation Monitor
	// STATUS_WARN_THRESHOLD warns when a status round trip takes longer
	STATUS_WARN_THRESHOLD = time.Second * 3
	// RESTART_WARN_THRESHOLD warns when a restart takes longer
	RESTART_WARN_THRESHOLD = time.Minute
	// OPMON_DUMP_INTERVAL is the interval to print opmon infos to output, 0 disables
	OPMON_DUMP_INTERVAL = 0
)

// Debug Options
const (
	// DEBUG_STATUS prints every status poll result
	DEBUG_STATUS = false
)
