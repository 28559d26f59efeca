// pkg/ai/ai.go
package ai

import (
	"math/rand"
	"time"

	"github.com/obrien-tchaleu/ludo-stake-go/internal/server/game"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/board"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/constants"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/models"
)

// Niveaux de jeu
const (
	LevelEasy   = "easy"
	LevelMedium = "medium"
	LevelHard   = "hard"
)

// AIPlayer choisit un pion parmi les coups légaux
type AIPlayer struct {
	Level      string // easy, medium, hard
	ThinkDelay time.Duration
	rand       *rand.Rand
}

// NewAIPlayer crée une nouvelle IA
func NewAIPlayer(level string) *AIPlayer {
	var thinkDelay time.Duration
	switch level {
	case LevelEasy:
		thinkDelay = 2 * time.Second
	case LevelHard:
		thinkDelay = 1000 * time.Millisecond
	default:
		level = LevelMedium
		thinkDelay = 1500 * time.Millisecond
	}

	return &AIPlayer{
		Level:      level,
		ThinkDelay: thinkDelay,
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithSeed rend les choix aléatoires reproductibles
func (ai *AIPlayer) WithSeed(seed int64) *AIPlayer {
	ai.rand = rand.New(rand.NewSource(seed))
	return ai
}

// candidate est un coup légal et son verdict
type candidate struct {
	tokenIndex int
	from       models.Token
	result     game.Result
}

// SelectToken retourne le pion à jouer, ou false si aucun coup n'est légal
func (ai *AIPlayer) SelectToken(g *models.Game, playerIndex, dice int, rules game.Rules) (int, bool) {
	moves := legalMoves(g, playerIndex, dice, rules)
	if len(moves) == 0 {
		return 0, false
	}

	switch ai.Level {
	case LevelEasy:
		return moves[ai.rand.Intn(len(moves))].tokenIndex, true
	case LevelHard:
		return ai.selectTokenHard(g, playerIndex, moves, rules), true
	default:
		return selectTokenMedium(moves), true
	}
}

// selectTokenMedium - priorité aux captures, puis sortie de base, puis le plus avancé
func selectTokenMedium(moves []candidate) int {
	for _, m := range moves {
		if len(m.result.Captures) > 0 {
			return m.tokenIndex
		}
	}
	for _, m := range moves {
		if m.from.State == constants.TokenBase {
			return m.tokenIndex
		}
	}

	best := moves[0]
	for _, m := range moves[1:] {
		if m.from.StepsFromStart > best.from.StepsFromStart {
			best = m
		}
	}
	return best.tokenIndex
}

// selectTokenHard - score pondéré; égalités départagées au hasard
func (ai *AIPlayer) selectTokenHard(g *models.Game, playerIndex int, moves []candidate, rules game.Rules) int {
	bestScore := 0
	var best []int
	for i, m := range moves {
		score := evaluateMove(g, playerIndex, m, rules)
		switch {
		case i == 0 || score > bestScore:
			bestScore = score
			best = []int{m.tokenIndex}
		case score == bestScore:
			best = append(best, m.tokenIndex)
		}
	}
	return best[ai.rand.Intn(len(best))]
}

// evaluateMove évalue la qualité d'un déplacement
func evaluateMove(g *models.Game, playerIndex int, m candidate, rules game.Rules) int {
	score := 0
	to := m.result.To

	// 1. Capture d'un adversaire
	score += 1000 * len(m.result.Captures)

	// 2. Sortir de la base
	if m.from.State == constants.TokenBase {
		score += 500
	}

	// 3. Arrivée ou entrée dans le couloir final
	switch {
	case to.State == constants.TokenHome:
		score += 900
	case to.State == constants.TokenHomeStretch && m.from.State == constants.TokenTrack:
		score += 800
	}

	// 4. Avancement
	score += to.StepsFromStart * 10

	if to.State != constants.TokenTrack {
		return score
	}
	global, _ := board.PathIndexToGlobal(playerIndex, to.StepsFromStart)

	// 5. Zone sécurisée
	if rules.SafeSquares.Contains(global) {
		return score + 300
	}

	// 6. Adversaire à portée de dé derrière la destination
	if threatened(g, playerIndex, global) {
		score -= 400
	}

	// 7. Former un blocage avec un pion ami
	if rules.AllowBlocking && ownTokenAt(g, playerIndex, m.tokenIndex, global) {
		score += 200
	}
	return score
}

func legalMoves(g *models.Game, playerIndex, dice int, rules game.Rules) []candidate {
	if g == nil || playerIndex < 0 || playerIndex >= len(g.Players) {
		return nil
	}
	if rules.SafeSquares == nil {
		rules.SafeSquares = board.DefaultSafeSquares()
	}
	moves := make([]candidate, 0, len(g.Players[playerIndex].Tokens))
	for _, t := range g.Players[playerIndex].Tokens {
		res := game.ValidateMove(g, playerIndex, t.TokenIndex, dice, rules)
		if res.Legal {
			moves = append(moves, candidate{tokenIndex: t.TokenIndex, from: t, result: res})
		}
	}
	return moves
}

// threatened vérifie si un pion adverse peut atteindre la case au prochain lancer
func threatened(g *models.Game, playerIndex, global int) bool {
	for pi, p := range g.Players {
		if pi == playerIndex {
			continue
		}
		for _, t := range p.Tokens {
			if t.State != constants.TokenTrack {
				continue
			}
			og, ok := board.PathIndexToGlobal(pi, t.StepsFromStart)
			if !ok {
				continue
			}
			d := (global - og + constants.TrackLength) % constants.TrackLength
			// un pion adverse ne repasse pas sa propre entrée de couloir
			if d >= constants.DiceMin && d <= constants.DiceMax && t.StepsFromStart+d < constants.TrackLength {
				return true
			}
		}
	}
	return false
}

func ownTokenAt(g *models.Game, playerIndex, tokenIndex, global int) bool {
	for _, t := range g.Players[playerIndex].Tokens {
		if t.TokenIndex == tokenIndex || t.State != constants.TokenTrack {
			continue
		}
		if og, ok := board.PathIndexToGlobal(playerIndex, t.StepsFromStart); ok && og == global {
			return true
		}
	}
	return false
}
