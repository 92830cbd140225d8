package core

// Logger is the app-wide logging port.
// expected args fmt: error, map[string]interface{}
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Identity resolves the currently authenticated user.
// All remote reads/writes are scoped to it.
type Identity interface {
	// CurrentUserID returns the opaque user id, or ErrNoIdentity when
	// no user is logged in.
	CurrentUserID() (string, error)
}
