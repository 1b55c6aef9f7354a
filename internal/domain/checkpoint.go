package domain

import (
	"time"
)

// Checkpoint — точка останова workflow, ожидающая решения человека.
//
// Checkpoint создаётся внешним workflow-движком, когда задача требует
// human input, и существует в одном из двух режимов авторизации:
//
//   - single-approval: задан RequiredRole; решение принимает один
//     оператор с достаточной ролью
//   - multi-sign: задан список RequiredSigners и кворум MinSignatures;
//     checkpoint одобряется, когда подписей набирается достаточно
//
// После выхода из pending checkpoint неизменяем.
type Checkpoint struct {
	// ID — уникальный идентификатор checkpoint.
	ID string `json:"checkpoint_id"`

	// DagRunID — ID выполнения workflow, которое приостановлено.
	DagRunID string `json:"dag_run_id"`

	// TaskID — ID задачи внутри workflow, которая ждёт решения.
	TaskID string `json:"task_id"`

	// Tenant — tenant, которому принадлежит workflow.
	Tenant string `json:"tenant"`

	// Prompt — текст вопроса для оператора.
	Prompt string `json:"prompt,omitempty"`

	// RequiredRole — минимальная роль для approve/reject
	// (single-approval режим). Пустая, если режим multi-sign.
	RequiredRole Role `json:"required_role,omitempty"`

	// RequiredSigners — список пользователей, чьи подписи принимаются
	// (multi-sign режим). Пустой в single-approval режиме.
	RequiredSigners []string `json:"required_signers,omitempty"`

	// MinSignatures — кворум подписей. В single-approval режиме равен 1.
	MinSignatures int `json:"min_signatures"`

	// Status — текущий статус checkpoint.
	Status CheckpointStatus `json:"status"`

	// Approvals — упорядоченный список решений/подписей.
	// Каждый пользователь встречается не более одного раза.
	Approvals []Approval `json:"approvals,omitempty"`

	// RejectedBy — кто отклонил checkpoint (если Status=rejected).
	RejectedBy string `json:"rejected_by,omitempty"`

	// RejectReason — причина отклонения.
	RejectReason string `json:"reject_reason,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt — время, после которого pending checkpoint протухает.
	// Nil — без таймаута.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// Version — счётчик версий для optimistic locking.
	// Увеличивается хранилищем при каждой мутации.
	Version int `json:"-"`
}

// Approval — одна подпись или одобрение.
type Approval struct {
	// User — кто подписал.
	User string `json:"user"`

	// At — когда.
	At time.Time `json:"at"`

	// Data — произвольные данные решения (key=value из CLI).
	Data map[string]any `json:"approval_data,omitempty"`
}

// IsMultiSign возвращает true, если checkpoint в multi-sign режиме.
func (c *Checkpoint) IsMultiSign() bool {
	return len(c.RequiredSigners) > 0
}

// IsSatisfied возвращает true, если подписей достаточно для одобрения.
func (c *Checkpoint) IsSatisfied() bool {
	min := c.MinSignatures
	if min <= 0 {
		min = 1
	}
	return len(c.Approvals) >= min
}

// HasSigned возвращает true, если user уже подписал checkpoint.
func (c *Checkpoint) HasSigned(user string) bool {
	for _, a := range c.Approvals {
		if a.User == user {
			return true
		}
	}
	return false
}

// IsListedSigner возвращает true, если user входит в RequiredSigners.
func (c *Checkpoint) IsListedSigner(user string) bool {
	for _, s := range c.RequiredSigners {
		if s == user {
			return true
		}
	}
	return false
}

// IsExpiredAt возвращает true, если pending checkpoint протух к моменту now.
func (c *Checkpoint) IsExpiredAt(now time.Time) bool {
	if c.Status != CheckpointStatusPending || c.ExpiresAt == nil {
		return false
	}
	return !c.ExpiresAt.After(now)
}
