package watch

import "fmt"

// DirectoryCreationError reports that the output directory could not be created.
type DirectoryCreationError struct {
	Path string
	Err  error
}

func (e *DirectoryCreationError) Error() string {
	return fmt.Sprintf("create output directory %s: %v", e.Path, e.Err)
}

func (e *DirectoryCreationError) Unwrap() error { return e.Err }

// WatchSubscriptionError reports that change notifications for the input
// tree could not be set up.
type WatchSubscriptionError struct {
	Path string
	Err  error
}

func (e *WatchSubscriptionError) Error() string {
	return fmt.Sprintf("watch %s: %v", e.Path, e.Err)
}

func (e *WatchSubscriptionError) Unwrap() error { return e.Err }
