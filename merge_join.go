package osmextract

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

type cursor interface {
	Err() error
	Close() error
}

// finishCursors closes every cursor and returns the first iteration error (if any)
func finishCursors(cursors ...cursor) error {
	var result *multierror.Error
	for _, c := range cursors {
		if err := c.Err(); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "Can't iterate over staging data"))
		}
		if err := c.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// fail marks containers as unusable. Fatal errors abort whole run
func (containers *ExtractionContainers) fail(err error) error {
	containers.stage = stageFailed
	return err
}
