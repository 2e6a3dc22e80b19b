// Package fsevent defines the event record passed from observers to tricks
// and the capability interfaces a trick may implement.
package fsevent

// Type identifies the kind of filesystem change.
type Type string

// Event types, named as they appear in ${watch_event_type}.
const (
	Created  Type = "created"
	Modified Type = "modified"
	Deleted  Type = "deleted"
	Moved    Type = "moved"
)

// Event is a single filesystem change delivered to a handler.
// DestPath is set only for Moved events.
type Event struct {
	Type     Type
	SrcPath  string
	DestPath string
	IsDir    bool
}

// Object returns "directory" or "file", the ${watch_object} value.
func (e Event) Object() string {
	if e.IsDir {
		return "directory"
	}

	return "file"
}

// Paths returns the source path and, for moves, the destination path.
func (e Event) Paths() []string {
	if e.Type == Moved && e.DestPath != "" {
		return []string{e.SrcPath, e.DestPath}
	}

	return []string{e.SrcPath}
}

// Handler is implemented by every trick. Dispatch is called on the
// observer's goroutine; errors are the handler's own concern.
type Handler interface {
	Dispatch(ev Event)
}

// PathOverrider is implemented by handlers that declare their own watch
// path. An empty SourceDirectory means "use the default path".
type PathOverrider interface {
	SourceDirectory() string
}

// Lifecycle is implemented by handlers that own background resources,
// such as a supervised child process.
type Lifecycle interface {
	Start() error
	Stop() error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ev Event)

// Dispatch calls f(ev).
func (f HandlerFunc) Dispatch(ev Event) { f(ev) }
