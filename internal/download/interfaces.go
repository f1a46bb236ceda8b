package download

import (
	"io"
)

// Sink is where a delivered file ends up
type Sink interface {
	// Create opens the destination for a file called name
	Create(name, contentType string) (io.WriteCloser, error)
	// Open hands the URL to the user to save by hand. It is the last resort.
	Open(url string) error
}

// RelayResolver tells whether a URL must be fetched through the relay
type RelayResolver interface {
	NeedsRelay(raw string) (string, bool)
}

// aborter is implemented by writers that can throw away a partial file
type aborter interface {
	Abort() error
}
