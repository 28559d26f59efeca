// internal/server/game/validator.go
package game

import (
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/board"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/constants"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/models"
)

// Raisons de refus renvoyées aux joueurs
const (
	ReasonInvalidPlayer    = "Invalid player"
	ReasonInvalidDice      = "Invalid dice"
	ReasonInvalidToken     = "Invalid token index"
	ReasonAlreadyHome      = "Token already home"
	ReasonNeedSix          = "Must roll 6 to leave base"
	ReasonDestinationBlock = "Destination blocked by opponent block"
	ReasonPathBlock        = "Path blocked by opponent block"
	ReasonSafeSquare       = "Cannot capture on safe square"
	ReasonExactHome        = "Must land exactly on home"
	ReasonHomeSlotOccupied = "Home square already occupied by your token"
	ReasonUnexpectedState  = "Unexpected token state"
)

// Rules regroupe les options de règles partagées par le serveur et les requêtes de légalité
type Rules struct {
	SafeSquares    board.SafeSquares
	AllowBlocking  bool
	ExtraTurnOnSix bool
}

// DefaultRules retourne les règles par défaut
func DefaultRules() Rules {
	return Rules{
		SafeSquares:    board.DefaultSafeSquares(),
		AllowBlocking:  true,
		ExtraTurnOnSix: true,
	}
}

// Result est le verdict du validateur pour un déplacement
type Result struct {
	Legal     bool
	Reason    string
	To        models.Position
	Captures  []models.Capture
	ExtraTurn bool
}

func reject(reason string) Result {
	return Result{Legal: false, Reason: reason}
}

// occupant d'une case de l'anneau
type occupant struct {
	playerIndex int
	tokenIndex  int
}

// occupancy associe une case globale aux pions présents sur l'anneau
type occupancy map[int][]occupant

func buildOccupancy(g *models.Game) occupancy {
	occ := make(occupancy)
	for pIdx, p := range g.Players {
		for _, t := range p.Tokens {
			if t.State != constants.TokenTrack {
				continue
			}
			if global, ok := board.PathIndexToGlobal(pIdx, t.StepsFromStart); ok {
				occ[global] = append(occ[global], occupant{playerIndex: pIdx, tokenIndex: t.TokenIndex})
			}
		}
	}
	return occ
}

// isOpponentBlock: au moins deux pions, tous du même adversaire
func (o occupancy) isOpponentBlock(global, mover int) bool {
	list := o[global]
	if len(list) < 2 {
		return false
	}
	owner := list[0].playerIndex
	if owner == mover {
		return false
	}
	for _, occ := range list[1:] {
		if occ.playerIndex != owner {
			return false
		}
	}
	return true
}

func (o occupancy) opponents(g *models.Game, global, mover int) []models.Capture {
	var captures []models.Capture
	for _, occ := range o[global] {
		if occ.playerIndex == mover {
			continue
		}
		captures = append(captures, models.Capture{
			VictimUserID: g.Players[occ.playerIndex].UserID,
			PlayerIndex:  occ.playerIndex,
			TokenIndex:   occ.tokenIndex,
		})
	}
	return captures
}

// ValidateMove vérifie un déplacement sans modifier la partie
func ValidateMove(g *models.Game, playerIndex, tokenIndex, dice int, rules Rules) Result {
	if g == nil || playerIndex < 0 || playerIndex >= len(g.Players) {
		return reject(ReasonInvalidPlayer)
	}
	if dice < constants.DiceMin || dice > constants.DiceMax {
		return reject(ReasonInvalidDice)
	}
	player := &g.Players[playerIndex]
	token, ok := findToken(player, tokenIndex)
	if !ok {
		return reject(ReasonInvalidToken)
	}
	if rules.SafeSquares == nil {
		rules.SafeSquares = board.DefaultSafeSquares()
	}

	occ := buildOccupancy(g)

	switch token.State {
	case constants.TokenHome:
		return reject(ReasonAlreadyHome)
	case constants.TokenBase:
		return validateRelease(g, playerIndex, dice, occ, rules)
	case constants.TokenTrack, constants.TokenHomeStretch:
	default:
		return reject(ReasonUnexpectedState)
	}

	cur := token.StepsFromStart
	dest := cur + dice
	if dest > constants.FinalHomeSteps {
		return reject(ReasonExactHome)
	}

	extra := rules.ExtraTurnOnSix && dice == constants.RollForExtraTurn

	// les cases de l'anneau traversées restent soumises aux blocages
	if token.State == constants.TokenTrack && rules.AllowBlocking {
		last := dest - 1
		if last >= constants.TrackLength {
			last = constants.TrackLength - 1
		}
		for pi := cur + 1; pi <= last; pi++ {
			global, _ := board.PathIndexToGlobal(playerIndex, pi)
			if occ.isOpponentBlock(global, playerIndex) {
				return reject(ReasonPathBlock)
			}
		}
	}

	if board.IsHome(dest) {
		return Result{
			Legal:     true,
			To:        models.Position{State: constants.TokenHome, StepsFromStart: constants.FinalHomeSteps},
			ExtraTurn: extra,
		}
	}

	if board.IsHomeStretch(dest) {
		for _, other := range player.Tokens {
			if other.TokenIndex != token.TokenIndex &&
				other.State == constants.TokenHomeStretch &&
				other.StepsFromStart == dest {
				return reject(ReasonHomeSlotOccupied)
			}
		}
		return Result{
			Legal:     true,
			To:        models.Position{State: constants.TokenHomeStretch, StepsFromStart: dest},
			ExtraTurn: extra,
		}
	}

	destGlobal, _ := board.PathIndexToGlobal(playerIndex, dest)
	if rules.AllowBlocking && occ.isOpponentBlock(destGlobal, playerIndex) {
		return reject(ReasonDestinationBlock)
	}
	captures := occ.opponents(g, destGlobal, playerIndex)
	if len(captures) > 0 && rules.SafeSquares.Contains(destGlobal) {
		return reject(ReasonSafeSquare)
	}

	return Result{
		Legal:     true,
		To:        models.Position{State: constants.TokenTrack, StepsFromStart: dest},
		Captures:  captures,
		ExtraTurn: extra,
	}
}

// validateRelease traite la sortie de base vers la case de départ.
// Les adversaires isolés y sont capturés même si la case est sûre.
func validateRelease(g *models.Game, playerIndex, dice int, occ occupancy, rules Rules) Result {
	if dice != constants.RollToStart {
		return reject(ReasonNeedSix)
	}
	startGlobal, _ := board.PathIndexToGlobal(playerIndex, 0)
	if rules.AllowBlocking && occ.isOpponentBlock(startGlobal, playerIndex) {
		return reject(ReasonDestinationBlock)
	}
	return Result{
		Legal:     true,
		To:        models.Position{State: constants.TokenTrack, StepsFromStart: 0},
		Captures:  occ.opponents(g, startGlobal, playerIndex),
		ExtraTurn: true,
	}
}

// LegalTokens liste les pions jouables pour une valeur de dé
func LegalTokens(g *models.Game, playerIndex, dice int, rules Rules) []int {
	legal := make([]int, 0)
	if g == nil || playerIndex < 0 || playerIndex >= len(g.Players) {
		return legal
	}
	for _, t := range g.Players[playerIndex].Tokens {
		if ValidateMove(g, playerIndex, t.TokenIndex, dice, rules).Legal {
			legal = append(legal, t.TokenIndex)
		}
	}
	return legal
}

// AnyLegalToken indique si au moins un pion peut bouger
func AnyLegalToken(g *models.Game, playerIndex, dice int, rules Rules) bool {
	if g == nil || playerIndex < 0 || playerIndex >= len(g.Players) {
		return false
	}
	for _, t := range g.Players[playerIndex].Tokens {
		if ValidateMove(g, playerIndex, t.TokenIndex, dice, rules).Legal {
			return true
		}
	}
	return false
}

func findToken(p *models.GamePlayer, tokenIndex int) (models.Token, bool) {
	for _, t := range p.Tokens {
		if t.TokenIndex == tokenIndex {
			return t, true
		}
	}
	return models.Token{}, false
}
