package components

// componentNotFoundError signals a logical name with no registered factory.
type componentNotFoundError struct{ name string }

func (e componentNotFoundError) Error() string { return "component not found: " + e.name }

// ErrComponentNotFound constructs a componentNotFoundError.
func ErrComponentNotFound(name string) error { return componentNotFoundError{name: name} }

// IsComponentNotFound reports whether err indicates an unknown component name.
func IsComponentNotFound(err error) bool {
	_, ok := err.(componentNotFoundError)
	return ok
}
