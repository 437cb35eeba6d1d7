package gateway

// Frame types exchanged with the bridge.
const (
	frameHello            = "hello"
	frameChallengeRequest = "challenge.request"
	frameSend             = "send"

	frameChallenge   = "challenge"
	frameConnection  = "connection"
	frameCredentials = "credentials"
	frameMessage     = "message"
	frameSendAck     = "send.ack"
)

// frame is the single JSON envelope used in both directions.
type frame struct {
	Type string `json:"type"`

	// send / send.ack
	ID        string `json:"id,omitempty"`
	To        string `json:"to,omitempty"`
	Text      string `json:"text,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`

	// challenge
	Challenge string `json:"challenge,omitempty"`

	// connection
	Status string `json:"status,omitempty"`
	Code   int    `json:"code,omitempty"`

	// hello / credentials
	Credentials []byte `json:"credentials,omitempty"`
}
