// internal/shared/board/board.go
package board

import (
	"sort"

	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/constants"
)

// StartOffset retourne la case globale de départ d'un siège (0, 13, 26, 39)
func StartOffset(seat int) int {
	return (seat % constants.MaxPlayers) * constants.SeatOffsetStride
}

// IsOnTrack indique si un indice de chemin est sur l'anneau partagé
func IsOnTrack(pathIndex int) bool {
	return pathIndex >= 0 && pathIndex < constants.TrackLength
}

// IsHomeStretch indique si un indice de chemin est dans le couloir privé
func IsHomeStretch(pathIndex int) bool {
	return pathIndex >= constants.TrackLength && pathIndex < constants.FinalHomeSteps
}

// IsHome indique l'arrivée finale
func IsHome(pathIndex int) bool {
	return pathIndex == constants.FinalHomeSteps
}

// PathIndexToGlobal convertit un indice de chemin en case globale.
// Le second retour vaut false hors de l'anneau.
func PathIndexToGlobal(seat, pathIndex int) (int, bool) {
	if !IsOnTrack(pathIndex) {
		return 0, false
	}
	return (StartOffset(seat) + pathIndex) % constants.TrackLength, true
}

// GlobalToPath convertit une case globale en indice de chemin pour un siège
func GlobalToPath(seat, global int) (int, bool) {
	if global < 0 || global >= constants.TrackLength {
		return 0, false
	}
	return (global - StartOffset(seat) + constants.TrackLength) % constants.TrackLength, true
}

// SafeSquares est l'ensemble des cases globales protégées
type SafeSquares map[int]struct{}

// NewSafeSquares construit un ensemble de cases sûres
func NewSafeSquares(indices ...int) SafeSquares {
	s := make(SafeSquares, len(indices))
	for _, i := range indices {
		s[i] = struct{}{}
	}
	return s
}

// DefaultSafeSquares retourne les cases sûres par défaut
func DefaultSafeSquares() SafeSquares {
	return NewSafeSquares(constants.SafePositions...)
}

// Contains vérifie si une case globale est sûre
func (s SafeSquares) Contains(global int) bool {
	_, ok := s[global]
	return ok
}

// Sorted retourne les cases triées, pour l'affichage côté client
func (s SafeSquares) Sorted() []int {
	out := make([]int, 0, len(s))
	for i := range s {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
