package logger

import "sync"

var named sync.Map // string -> *Logger

// Register pins the logger Get returns for name, e.g. to capture a
// provider's output in tests.
func Register(name string, l *Logger) { named.Store(name, l) }

// Unregister undoes Register.
func Unregister(name string) { named.Delete(name) }

// Get returns the logger registered under name, or the global logger tagged
// with component=name.
func Get(name string) *Logger {
	if l, ok := named.Load(name); ok {
		return l.(*Logger)
	}
	return GetGlobalLogger().WithComponent(name)
}
