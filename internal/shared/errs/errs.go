// internal/shared/errs/errs.go
package errs

import (
	"errors"
	"fmt"

	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/constants"
)

// Kind classe les erreurs renvoyées aux clients
type Kind string

const (
	KindValidation Kind = "validation"
	KindRule       Kind = "rule"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindInternal   Kind = "internal"
)

// Error est une erreur typée portant un code stable
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]interface{}
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is compare deux erreurs typées par leur code
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// With ajoute un détail exposé au client
func (e *Error) With(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New crée une erreur typée
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Validation signale une requête mal formée
func Validation(message string) *Error {
	return New(KindValidation, constants.ErrBadRequest, message)
}

// Rule signale une violation des règles du jeu
func Rule(code, message string) *Error {
	return New(KindRule, code, message)
}

// Conflict signale un état incompatible avec l'opération
func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

// NotFound signale une ressource absente
func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

// Internal enveloppe une panne de stockage ou de portefeuille
func Internal(op string, cause error) *Error {
	return &Error{
		Kind:    KindInternal,
		Code:    constants.ErrInternal,
		Message: op,
		cause:   cause,
	}
}

// As extrait une erreur typée; toute autre erreur devient interne
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("unexpected error", err)
}

// CodeOf retourne le code d'une erreur, ou une chaîne vide
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// PublicMessage masque le détail des erreurs internes
func (e *Error) PublicMessage() string {
	if e.Kind == KindInternal {
		return "internal server error"
	}
	return e.Message
}
