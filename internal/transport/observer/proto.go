package observer

const Version = "1.0"

// SubscribeMsg must be the first client message. An empty Kinds list
// subscribes to every save kind.
type SubscribeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Kinds           []string `json:"kinds,omitempty"`
}

// SaveMsg is pushed to subscribers after each completed save.
type SaveMsg struct {
	Type   string `json:"type"`
	Kind   string `json:"kind"`
	Key    string `json:"key"`
	Bytes  int    `json:"bytes"`
	Digest string `json:"digest"`
	Tick   int64  `json:"tick"`
	At     string `json:"at"`
}

// Status is served by StatusHandler.
type Status struct {
	ProtocolVersion string `json:"protocol_version"`
	World           string `json:"world"`
	Tick            int64  `json:"tick"`
	ChunkBits       int    `json:"chunk_bits"`
	LoadedChunks    int    `json:"loaded_chunks"`
	DirtyChunks     int    `json:"dirty_chunks"`
}

type StatusSource interface {
	Status() Status
}
