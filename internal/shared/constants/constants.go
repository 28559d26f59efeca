// internal/shared/constants/constants.go
package constants

const (
	// Configuration réseau
	DefaultServerPort = "8080"
	MinPlayers        = 2
	MaxPlayers        = 4

	// Configuration du plateau
	TrackLength      = 52
	HomeStretchSize  = 6
	FinalHomeSteps   = TrackLength + HomeStretchSize // 58
	BaseSteps        = -1
	ClassicTokens    = 4
	QuickTokens      = 2
	QuickWinTokens   = QuickTokens
	SeatOffsetStride = 13

	// Règles du jeu
	DiceMin          = 1
	DiceMax          = 6
	RollToStart      = 6
	RollForExtraTurn = 6

	// Timeouts (secondes)
	RoomTimeout    = 300
	MinRoomTimeout = 5

	// Commission prélevée sur le pot (pourcentage)
	DefaultCommissionPercent = 20
)

// Couleurs des joueurs, dans l'ordre des sièges
type PlayerColor string

const (
	ColorRed    PlayerColor = "red"
	ColorGreen  PlayerColor = "green"
	ColorYellow PlayerColor = "yellow"
	ColorBlue   PlayerColor = "blue"
)

// SeatColors donne la couleur attribuée à chaque siège
var SeatColors = []PlayerColor{ColorRed, ColorGreen, ColorYellow, ColorBlue}

// Modes de jeu
type GameMode string

const (
	ModeClassic GameMode = "Classic"
	ModeQuick   GameMode = "Quick"
)

// États d'une salle
type RoomStatus string

const (
	RoomWaiting   RoomStatus = "waiting"
	RoomFull      RoomStatus = "full"
	RoomPlaying   RoomStatus = "playing"
	RoomEnded     RoomStatus = "ended"
	RoomCancelled RoomStatus = "cancelled"
)

// États d'un joueur dans une salle
type SeatStatus string

const (
	SeatJoined SeatStatus = "joined"
	SeatLeft   SeatStatus = "left"
)

// États d'une partie
type GameStatus string

const (
	GamePlaying GameStatus = "playing"
	GameEnded   GameStatus = "ended"
	GameAborted GameStatus = "aborted"
)

// États d'un pion
type TokenState string

const (
	TokenBase        TokenState = "base"
	TokenTrack       TokenState = "track"
	TokenHomeStretch TokenState = "homeStretch"
	TokenHome        TokenState = "home"
)

// Types d'événements temps réel
type EventType string

const (
	// Client -> Serveur (avec accusé de réception)
	EvtSessionCreate EventType = "session:create"
	EvtSessionJoin   EventType = "session:join"
	EvtSessionLeave  EventType = "session:leave"
	EvtRoomsList     EventType = "rooms:list"
	EvtDiceRoll      EventType = "dice:roll"
	EvtTokenMove     EventType = "token:move"
	EvtGameGet       EventType = "game:get"
	EvtGameReconnect EventType = "game:reconnect"
	EvtChatMessage   EventType = "chat:message"
	EvtPing          EventType = "ping"

	// Serveur -> Client
	EvtAck             EventType = "ack"
	EvtRoomCreate      EventType = "room:create"
	EvtRoomUpdate      EventType = "room:update"
	EvtRoomFull        EventType = "room:full"
	EvtGameStart       EventType = "game:start"
	EvtDiceResult      EventType = "dice:result"
	EvtTokenMoved      EventType = "token:move"
	EvtTurnChange      EventType = "turn:change"
	EvtGameEnd         EventType = "game:end"
	EvtGameState       EventType = "game:state"
	EvtSessionReplaced EventType = "session:replaced"
)

// Codes d'erreur
const (
	ErrBadRequest        = "E_BAD_REQUEST"
	ErrUnauthorized      = "E_UNAUTHORIZED"
	ErrNoRoom            = "E_NO_ROOM"
	ErrRoomNotAvailable  = "E_ROOM_NOT_AVAILABLE"
	ErrNoGame            = "E_NO_GAME"
	ErrGameNotPlaying    = "E_GAME_NOT_PLAYING"
	ErrNotYourTurn       = "E_NOT_YOUR_TURN"
	ErrPendingMove       = "PENDING_MOVE"
	ErrNoPendingDice     = "E_NO_PENDING_DICE"
	ErrTurnDesync        = "E_TURN_DESYNC"
	ErrStepsMismatch     = "E_STEPS_MISMATCH"
	ErrIllegalMove       = "E_ILLEGAL_MOVE"
	ErrNoPriorRoom       = "E_NO_PRIOR_ROOM"
	ErrReconnectFailed   = "E_RECONNECT_FAILED"
	ErrInsufficientFunds = "E_INSUFFICIENT_FUNDS"
	ErrNotInRoom         = "E_NOT_IN_ROOM"
	ErrUnknownEvent      = "E_UNKNOWN_EVENT"
	ErrInternal          = "E_INTERNAL"
)

// Positions des zones sécurisées (4 départs + 4 étoiles)
var SafePositions = []int{0, 8, 13, 21, 26, 34, 39, 47}
