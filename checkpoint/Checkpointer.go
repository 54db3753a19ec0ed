// Package checkpoint implements periodic saving of serializable
// objects, such as network weights, to durable storage.
package checkpoint

import (
	"encoding/gob"
	"fmt"
	"os"
)

// Serializable is an object that can be saved/serialized
type Serializable interface {
	gob.GobEncoder
	gob.GobDecoder
}

// Checkpointer checkpoints/saves serializable objects based on
// training iterations
type Checkpointer interface {
	Checkpoint(iteration int) error
}

// nIteration implements checkpointing every N training iterations
type nIteration struct {
	interval int
	object   Serializable // Object to save

	// filename returns the string filename of the file to save the
	// object in. Use FilenameEnumerator to save each checkpoint to a
	// separate, consecutively numbered file.
	filename func() string
}

// NewNIteration returns a checkpointer that gob encodes its object to
// a new file every n training iterations.
func NewNIteration(n int, object Serializable,
	filename func() string) Checkpointer {
	return &nIteration{
		interval: n,
		object:   object,
		filename: filename,
	}
}

// Checkpoint saves the checkpointer's tracked object if iteration is
// a multiple of the checkpointing interval
func (n *nIteration) Checkpoint(iteration int) error {
	if iteration%n.interval != 0 {
		return nil
	}

	data, err := n.object.GobEncode()
	if err != nil {
		return fmt.Errorf("checkpoint: could not encode object: %v", err)
	}

	if err := os.WriteFile(n.filename(), data, 0644); err != nil {
		return fmt.Errorf("checkpoint: could not write file: %v", err)
	}
	return nil
}

// Restore decodes the contents of filename into object
func Restore(filename string, object Serializable) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("restore: could not read file: %v", err)
	}

	if err := object.GobDecode(data); err != nil {
		return fmt.Errorf("restore: could not decode object: %v", err)
	}
	return nil
}
