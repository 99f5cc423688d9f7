// Package ipc is the line-JSON unix-socket control surface of a running
// veil instance: single-owner socket acquisition, a tiny request/response
// protocol, and the client used by forwarded CLI commands.
package ipc

// Request is one command line sent to the running instance.
type Request struct {
	Command string `json:"command"`
}

// Response reports command outcome plus the navigation snapshot for
// status queries.
type Response struct {
	OK       bool   `json:"ok"`
	Active   bool   `json:"active,omitempty"`
	Mode     string `json:"mode,omitempty"`
	Category string `json:"category,omitempty"`
	Element  string `json:"element,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}
