// Package queue carries background tasks between the API and the worker over
// a redis stream.
package queue

import (
	"errors"
	"fmt"
)

const TypePurgePhotos = "purge_photos"

var ErrMalformedTask = errors.New("malformed task")

// Task is the payload of one stream entry. Stream values are flat string
// maps, so fields stay scalar.
type Task struct {
	Type   string
	FlatID string
}

func PurgePhotos(flatID string) Task {
	return Task{Type: TypePurgePhotos, FlatID: flatID}
}

func (t Task) Values() map[string]any {
	return map[string]any{
		"type":   t.Type,
		"flatId": t.FlatID,
	}
}

func DecodeTask(values map[string]any) (Task, error) {
	typ, _ := values["type"].(string)
	if typ == "" {
		return Task{}, fmt.Errorf("%w: missing type", ErrMalformedTask)
	}
	flatID, _ := values["flatId"].(string)
	return Task{Type: typ, FlatID: flatID}, nil
}
