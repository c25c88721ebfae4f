package archive

// NodeKind is the state of a container on the encoder stack.
// A container starts in a Start state and moves to the matching In state
// when its first child is written.
type NodeKind uint8

// Encoder node kinds.
const (
	Root NodeKind = iota
	StartObject
	InObject
	StartArray
	InArray
)

func (k NodeKind) String() string {
	switch k {
	case Root:
		return "root"
	case StartObject:
		return "start-object"
	case InObject:
		return "in-object"
	case StartArray:
		return "start-array"
	case InArray:
		return "in-array"
	}

	return "unknown"
}

// NodeState is the state of a level of the decoder stack.
type NodeState uint8

// Decoder node states.
const (
	StateRoot NodeState = iota
	// inside a root document
	StateInObject
	StateInEmbeddedObject
	StateInEmbeddedArray
)

func (s NodeState) String() string {
	switch s {
	case StateRoot:
		return "root"
	case StateInObject:
		return "in-object"
	case StateInEmbeddedObject:
		return "in-embedded-object"
	case StateInEmbeddedArray:
		return "in-embedded-array"
	}

	return "unknown"
}
