package checkpoint

import "errors"

// Ошибки approval state machine.
//
// Ошибки авторизации и состояния всегда возвращаются вызывающему и
// никогда не мутируют checkpoint — молчаливого даунгрейда до успеха нет.
var (
	// ErrNotFound — checkpoint не существует.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrAlreadyExists — checkpoint с таким ID уже создан.
	ErrAlreadyExists = errors.New("checkpoint already exists")

	// ErrNotPending — checkpoint уже покинул статус pending.
	ErrNotPending = errors.New("checkpoint is not pending")

	// ErrAlreadySigned — пользователь уже подписал checkpoint.
	ErrAlreadySigned = errors.New("already signed")

	// ErrNotAuthorized — роли вызывающего недостаточно.
	ErrNotAuthorized = errors.New("insufficient role")

	// ErrNotASigner — пользователь не входит в required_signers.
	ErrNotASigner = errors.New("not a listed signer")

	// ErrWrongMode — операция не соответствует режиму авторизации
	// (approve/reject на multi-sign checkpoint либо sign на single-approval).
	ErrWrongMode = errors.New("operation does not match checkpoint mode")

	// ErrConflict — конкурентная мутация опередила текущую.
	ErrConflict = errors.New("concurrent checkpoint modification")

	// ErrInvalidParams — некорректные параметры создания.
	ErrInvalidParams = errors.New("invalid checkpoint parameters")
)
