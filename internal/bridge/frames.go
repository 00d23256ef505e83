package bridge

// Outbound wire frames. Every frame is a JSON object with a "type"
// discriminator; chat and system notices share the message frame.

// StatusFrame is sent once per connection right after handshake resolution.
type StatusFrame struct {
	Type          string   `json:"type"`
	Authenticated bool     `json:"authenticated"`
	AuthMode      string   `json:"authMode"`
	Username      string   `json:"username"`
	Favicon       string   `json:"favicon"`
	DefaultSound  string   `json:"defaultSound"`
	SoundPresets  []string `json:"soundPresets"`
}

// MessageFrame carries chat lines and system notices.
type MessageFrame struct {
	Type    string `json:"type"`
	User    string `json:"user"`
	Message string `json:"message"`
}

// PlayerListFrame is the roster: in-game players plus web users.
type PlayerListFrame struct {
	Type     string   `json:"type"`
	Players  []string `json:"players"`
	WebUsers []string `json:"webUsers"`
}

// OTPSentFrame acknowledges a request_otp command.
type OTPSentFrame struct {
	Type string `json:"type"`
}

// AuthSuccessFrame hands the client its new session token.
type AuthSuccessFrame struct {
	Type     string `json:"type"`
	Token    string `json:"token"`
	Username string `json:"username"`
}

// ErrorFrame surfaces a user-facing failure.
type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// command is an inbound JSON payload. Non-JSON text (other than "PING") is
// plain chat and never reaches this struct.
type command struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Code     string `json:"code"`
}

const (
	frameStatus      = "status"
	frameMessage     = "message"
	framePlayerList  = "playerList"
	frameOTPSent     = "otp_sent"
	frameAuthSuccess = "auth_success"
	frameError       = "error"

	cmdRequestOTP = "request_otp"
	cmdVerifyOTP  = "verify_otp"
)

// systemUser is the sender name on system notices.
const systemUser = "System"
