package council

// Frame types on the wire. One JSON object per websocket message.
const (
	TypeStartChat = "start_chat"
	TypeStream    = "stream"
	TypeComplete  = "complete"
	TypeError     = "error"
)

// Frame is the websocket wire format, shared by the gateway and the seeker
// client. Fields are populated per Type:
//
//	start_chat  Content, SelectedSages, MessageID, SessionID   (inbound)
//	stream      SageID, Chunk, MessageID                       (outbound)
//	complete    SageID, Response, MessageID                    (outbound)
//	error       Message, MessageID, and SageID when the error
//	            is scoped to one sage rather than the request  (outbound)
type Frame struct {
	Type          string   `json:"type"`
	Content       string   `json:"content,omitempty"`
	SelectedSages []string `json:"selectedSages,omitempty"`
	SessionID     string   `json:"sessionId,omitempty"`
	SageID        string   `json:"sageId,omitempty"`
	Chunk         string   `json:"chunk"`
	Response      string   `json:"response,omitempty"`
	Message       string   `json:"message,omitempty"`
	MessageID     int64    `json:"messageId"`
}

// Frame converts an orchestrator event to its wire form.
func (ev Event) Frame() Frame {
	switch ev.Type {
	case EventComplete:
		return Frame{Type: TypeComplete, SageID: ev.SageID, Response: ev.Response, MessageID: ev.RequestID}
	case EventFailed:
		return Frame{Type: TypeError, SageID: ev.SageID, Message: ev.Reason, MessageID: ev.RequestID}
	default:
		return Frame{Type: TypeStream, SageID: ev.SageID, Chunk: ev.Chunk, MessageID: ev.RequestID}
	}
}
