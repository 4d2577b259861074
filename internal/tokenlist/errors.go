package tokenlist

import "fmt"

// UnableToLoadListError reports a single URL's fetch failure, which fails
// the whole fetch batch.
type UnableToLoadListError struct {
	URL    string
	Reason string
}

func (e *UnableToLoadListError) Error() string {
	return fmt.Sprintf("unable to load token list %q: %s", e.URL, e.Reason)
}
