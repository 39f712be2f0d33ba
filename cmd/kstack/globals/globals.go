package globals

import "log/slog"

// LogLevel is shared by the logger and the --debug flag.
var LogLevel = new(slog.LevelVar)
