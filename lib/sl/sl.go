package sl

import "log/slog"

func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Secret masks a sensitive value in logs, keeping only a short prefix.
func Secret(key, value string) slog.Attr {
	masked := "?"
	if len(value) > 5 {
		masked = value[:5] + "***"
	} else if value != "" {
		masked = "***"
	}
	return slog.Attr{
		Key:   key,
		Value: slog.StringValue(masked),
	}
}

func Module(mod string) slog.Attr {
	return slog.Attr{
		Key:   "mod",
		Value: slog.StringValue(mod),
	}
}
