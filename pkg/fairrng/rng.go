// pkg/fairrng/rng.go
package fairrng

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/bits"
	"strconv"
)

// SeedBytes est la taille du secret tiré par partie
const SeedBytes = 32

// Roll est une entrée du journal de dés utilisée pour l'audit
type Roll struct {
	Seq   uint64
	Value int
}

// MismatchError signale un lancer qui ne correspond pas au secret
type MismatchError struct {
	Seq      uint64
	Expected int
	Got      int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("dice log mismatch at seq %d: expected %d, got %d", e.Seq, e.Expected, e.Got)
}

// NewSeed génère le secret d'une partie (aléa cryptographique)
func NewSeed() (string, error) {
	buf := make([]byte, SeedBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate rng seed: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// RollDie dérive la valeur du dé pour un numéro de lancer.
// Même secret et même numéro donnent toujours la même valeur.
func RollDie(secret string, seq uint64) int {
	st := deriveState(secret, seq)
	x := st.next()
	// 24 bits de poids fort ramenés sur [1,6]
	return int((uint64(x>>8)*6)>>24) + 1
}

// Verify rejoue un journal de dés et retourne la première divergence
func Verify(secret string, rolls []Roll) error {
	var prev uint64
	for i, r := range rolls {
		if i > 0 && r.Seq != prev+1 {
			return fmt.Errorf("dice log gap: seq %d follows %d", r.Seq, prev)
		}
		prev = r.Seq
		if want := RollDie(secret, r.Seq); want != r.Value {
			return &MismatchError{Seq: r.Seq, Expected: want, Got: r.Value}
		}
	}
	return nil
}

// xoshiro128** sur un état de 128 bits
type state [4]uint32

func deriveState(secret string, seq uint64) state {
	h := sha256.Sum256([]byte(secret + ":" + strconv.FormatUint(seq, 10)))
	var s state
	for i := range s {
		s[i] = binary.BigEndian.Uint32(h[i*4:])
	}
	return s
}

func (s *state) next() uint32 {
	result := bits.RotateLeft32(s[1]*5, 7) * 9
	t := s[1] << 9

	s[2] ^= s[0]
	s[3] ^= s[1]
	s[1] ^= s[2]
	s[0] ^= s[3]
	s[2] ^= t
	s[3] = bits.RotateLeft32(s[3], 11)

	return result
}
