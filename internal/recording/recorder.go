// Package recording starts audio capture for a room and predicts where the
// file will land. Start is best effort: the survey proceeds without a
// recording when it fails.
package recording

import "context"

// Recording identifies a started capture job and its destination. StorageURL
// is the constructed destination path, not confirmation the file exists yet.
type Recording struct {
	EgressID   string
	StorageURL string
}

// Recorder starts an audio capture job for a room.
type Recorder interface {
	Start(ctx context.Context, roomName, phoneNumber string) (Recording, error)
}
