package domain

import "errors"

var ErrEmptyCompletion = errors.New("no choices in completion response")
