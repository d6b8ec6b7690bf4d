package service

import (
	"errors"
	"fmt"
)

// ErrNotFound - инцидент отсутствует в хранилище
var ErrNotFound = errors.New("incident not found")

// ValidationError - черновик не прошел клиентскую валидацию.
// Операция записи при этом не предпринимается.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// RemoteWriteError - удаленное хранилище отвергло мутацию
// (сеть, права, внутренняя ошибка)
type RemoteWriteError struct {
	Op  string
	Err error
}

func (e *RemoteWriteError) Error() string {
	return fmt.Sprintf("remote write %s failed: %v", e.Op, e.Err)
}

func (e *RemoteWriteError) Unwrap() error {
	return e.Err
}
