package store

import (
	"errors"

	"github.com/lib/pq"
)

func asPQError(err error, target **pq.Error) bool {
	return errors.As(err, target)
}
