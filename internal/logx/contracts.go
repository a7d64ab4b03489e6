package logx

import "time"

// Logger is the structured logger every component receives. Fields are
// typed key-value pairs so that call sites never build messages by hand.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	Sync() error
}

// Field is one key-value pair attached to a log entry.
type Field struct {
	Key   string
	Value any
}

// Any attaches an arbitrary value.
func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// String attaches a string.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int attaches an int.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 attaches an int64, typically an entity id.
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Bool attaches a bool.
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Time attaches an instant.
func Time(key string, value time.Time) Field {
	return Field{Key: key, Value: value}
}

// Date attaches a calendar day formatted as YYYY-MM-DD.
func Date(key string, value time.Time) Field {
	return Field{Key: key, Value: value.Format(time.DateOnly)}
}

// Duration attaches a duration.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Err attaches err under the "err" key. A nil error yields an empty value.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "err", Value: nil}
	}
	return Field{Key: "err", Value: err.Error()}
}
