package memory

import "errors"

var ErrDuplicateID = errors.New("record with this id already exists")
