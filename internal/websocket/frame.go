package websocket

import "encoding/json"

const (
	FrameStatus = "status"
	FrameChunk  = "chunk"
	FrameDone   = "done"
	FrameError  = "error"
	// FrameEvent carries a run finished on another connection or instance.
	FrameEvent = "event"
)

type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

func (f Frame) encode() []byte {
	data, err := json.Marshal(f)
	if err != nil {
		data, _ = json.Marshal(Frame{Type: FrameError, Data: map[string]string{"message": "unencodable frame"}})
	}
	return data
}
