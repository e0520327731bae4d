package context

// Environment is the interface to the process environment.
type Environment interface {
	// Getwd returns the working directory of the process.
	Getwd() (string, error)
}
