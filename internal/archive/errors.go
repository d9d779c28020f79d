package archive

import "fmt"

// ExtractError reports a failed extraction step. Files written before the
// failure are left in place.
type ExtractError struct {
	Op   string
	Path string
	Err  error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}
