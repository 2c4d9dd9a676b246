package chessproto

// Message is any value that can travel on the stream. MessageType is the
// discriminant written on the wire.
type Message interface {
	MessageType() string
}

// ClientMessage is sent by the client to the server.
type ClientMessage interface {
	Message
	clientMessage()
}

// ServerMessage is sent by the server to the client.
type ServerMessage interface {
	Message
	serverMessage()
}

// Client → server

// Handshake opens a session. ChosenColor is the color the client will play.
type Handshake struct {
	ChosenColor Color `json:"chosen_color"`
}

// SubmitMove proposes a move for the client's side.
type SubmitMove struct {
	Move
}

type Resign struct{}

type OfferDraw struct{}

// Server → client

type HandshakeAck struct {
	Features   []Feature  `json:"features"`
	Board      Board      `json:"board"`
	LegalMoves []Move     `json:"legal_moves"`
	Result     GameResult `json:"result"`
}

// State is broadcast after every applied move, whichever side made it.
type State struct {
	Board       Board      `json:"board"`
	LegalMoves  []Move     `json:"legal_moves"`
	Result      GameResult `json:"result"`
	MoveApplied Move       `json:"move_applied"`
}

// MoveRejected answers a SubmitMove the engine refused, or a declined draw offer.
type MoveRejected struct {
	Board      Board      `json:"board"`
	LegalMoves []Move     `json:"legal_moves"`
	Result     GameResult `json:"result"`
	Reason     string     `json:"reason"`
}

type DrawAccepted struct {
	Board      Board  `json:"board"`
	LegalMoves []Move `json:"legal_moves"`
}

type Resigned struct {
	Board  Board      `json:"board"`
	Result GameResult `json:"result"`
}

const (
	TypeHandshake    = "Handshake"
	TypeSubmitMove   = "SubmitMove"
	TypeResign       = "Resign"
	TypeOfferDraw    = "OfferDraw"
	TypeHandshakeAck = "HandshakeAck"
	TypeState        = "State"
	TypeMoveRejected = "MoveRejected"
	TypeDrawAccepted = "DrawAccepted"
	TypeResigned     = "Resigned"
)

func (Handshake) MessageType() string    { return TypeHandshake }
func (SubmitMove) MessageType() string   { return TypeSubmitMove }
func (Resign) MessageType() string       { return TypeResign }
func (OfferDraw) MessageType() string    { return TypeOfferDraw }
func (HandshakeAck) MessageType() string { return TypeHandshakeAck }
func (State) MessageType() string        { return TypeState }
func (MoveRejected) MessageType() string { return TypeMoveRejected }
func (DrawAccepted) MessageType() string { return TypeDrawAccepted }
func (Resigned) MessageType() string     { return TypeResigned }

func (Handshake) clientMessage()  {}
func (SubmitMove) clientMessage() {}
func (Resign) clientMessage()     {}
func (OfferDraw) clientMessage()  {}

func (HandshakeAck) serverMessage() {}
func (State) serverMessage()        {}
func (MoveRejected) serverMessage() {}
func (DrawAccepted) serverMessage() {}
func (Resigned) serverMessage()     {}
