// Package obs is a request/reply-plus-events client for the production
// tool's control WebSocket. Frames are JSON envelopes {op, d}.
package obs

import "encoding/json"

// OpCode discriminates control-socket frames.
type OpCode int

const (
	OpHello           OpCode = 0 // server → client, may carry an auth challenge
	OpIdentify        OpCode = 1 // client → server
	OpIdentified      OpCode = 2 // server → client, socket is now usable
	OpEvent           OpCode = 5 // server → client, unsolicited
	OpRequest         OpCode = 6 // client → server
	OpRequestResponse OpCode = 7 // server → client
)

// rpcVersion is the protocol revision this client speaks.
const rpcVersion = 1

// StatusSuccess is the request status code indicating success.
const StatusSuccess = 100

type envelope struct {
	Op OpCode          `json:"op"`
	D  json.RawMessage `json:"d"`
}

type authChallenge struct {
	Challenge string `json:"challenge"`
	Salt      string `json:"salt"`
}

type helloData struct {
	WebSocketVersion string         `json:"obsWebSocketVersion"`
	RPCVersion       int            `json:"rpcVersion"`
	Authentication   *authChallenge `json:"authentication,omitempty"`
}

type identifyData struct {
	RPCVersion     int    `json:"rpcVersion"`
	Authentication string `json:"authentication,omitempty"`
}

type identifiedData struct {
	NegotiatedRPCVersion int `json:"negotiatedRpcVersion"`
}

type requestFrame struct {
	RequestType string `json:"requestType"`
	RequestID   string `json:"requestId"`
	RequestData any    `json:"requestData,omitempty"`
}

type requestStatus struct {
	Result  bool   `json:"result"`
	Code    int    `json:"code"`
	Comment string `json:"comment,omitempty"`
}

type responseFrame struct {
	RequestType   string          `json:"requestType"`
	RequestID     string          `json:"requestId"`
	RequestStatus requestStatus   `json:"requestStatus"`
	ResponseData  json.RawMessage `json:"responseData,omitempty"`
}

type eventFrame struct {
	EventType string          `json:"eventType"`
	EventData json.RawMessage `json:"eventData,omitempty"`
}

func encodeFrame(op OpCode, d any) ([]byte, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Op: op, D: raw})
}

// RequestError carries the status of a rejected request.
type RequestError struct {
	Code    int
	Comment string
}

func (e *RequestError) Error() string {
	if e.Comment == "" {
		return "request rejected"
	}
	return e.Comment
}
