// Package cronspec реализует ограниченное подмножество cron-выражений.
//
// Выражение состоит ровно из 5 полей, разделённых пробелами:
//
//	минута час день_месяца месяц день_недели
//
// Поле минуты принимает литерал, "*" или шаг "*/n" (срабатывает, когда
// minute % n == 0). Остальные четыре поля принимают только литерал или
// "*" — формы шага, диапазона и списка не поддерживаются. День недели
// нумеруется 0=понедельник .. 6=воскресенье.
//
// Некорректное выражение обнаруживается на этапе Parse (ConfigError),
// а не при сопоставлении — плохое расписание видно при загрузке
// конфигурации, а не молчаливо никогда не срабатывает.
package cronspec

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ConfigError — ошибка разбора cron-выражения.
type ConfigError struct {
	Expr    string // исходное выражение
	Field   string // имя поля, вызвавшего ошибку (пустое для ошибок структуры)
	Message string
}

// Error реализует интерфейс error.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("cron %q: field %s: %s", e.Expr, e.Field, e.Message)
	}
	return fmt.Sprintf("cron %q: %s", e.Expr, e.Message)
}

// field — одно поле выражения.
// Ровно один из вариантов активен: any, шаг (step > 0) или литерал.
type field struct {
	any     bool
	step    int // только для поля минуты
	literal int
}

// matches проверяет поле против значения.
func (f field) matches(v int) bool {
	switch {
	case f.any:
		return true
	case f.step > 0:
		return v%f.step == 0
	default:
		return v == f.literal
	}
}

// Schedule — разобранное cron-выражение.
type Schedule struct {
	expr    string
	minute  field
	hour    field
	dom     field
	month   field
	weekday field
}

// границы допустимых литералов по полям.
var fieldBounds = []struct {
	name     string
	min, max int
}{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day-of-month", 1, 31},
	{"month", 1, 12},
	{"weekday", 0, 6},
}

// Parse разбирает cron-выражение. Любое отклонение от грамматики
// (число полей, нечисловой литерал, значение вне диапазона,
// шаг вне поля минуты) возвращает *ConfigError.
func Parse(expr string) (*Schedule, error) {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return nil, &ConfigError{
			Expr:    expr,
			Message: fmt.Sprintf("expected 5 fields, got %d", len(parts)),
		}
	}

	s := &Schedule{expr: expr}
	fields := []*field{&s.minute, &s.hour, &s.dom, &s.month, &s.weekday}

	for i, part := range parts {
		bounds := fieldBounds[i]
		f, err := parseField(expr, bounds.name, part, bounds.min, bounds.max, i == 0)
		if err != nil {
			return nil, err
		}
		*fields[i] = f
	}

	return s, nil
}

// parseField разбирает одно поле. stepAllowed=true только для минуты.
func parseField(expr, name, part string, min, max int, stepAllowed bool) (field, error) {
	if part == "*" {
		return field{any: true}, nil
	}

	if rest, ok := strings.CutPrefix(part, "*/"); ok {
		if !stepAllowed {
			return field{}, &ConfigError{Expr: expr, Field: name, Message: "step form is only allowed for minute"}
		}
		n, err := strconv.Atoi(rest)
		if err != nil || n <= 0 {
			return field{}, &ConfigError{Expr: expr, Field: name, Message: fmt.Sprintf("invalid step %q", part)}
		}
		return field{step: n}, nil
	}

	v, err := strconv.Atoi(part)
	if err != nil {
		return field{}, &ConfigError{Expr: expr, Field: name, Message: fmt.Sprintf("invalid literal %q", part)}
	}
	if v < min || v > max {
		return field{}, &ConfigError{Expr: expr, Field: name, Message: fmt.Sprintf("value %d out of range [%d, %d]", v, min, max)}
	}
	return field{literal: v}, nil
}

// Matches возвращает true, если расписание срабатывает в минуту,
// к которой относится ts. Функция чистая: одинаковые входы всегда
// дают одинаковый результат.
func (s *Schedule) Matches(ts time.Time) bool {
	return s.minute.matches(ts.Minute()) &&
		s.hour.matches(ts.Hour()) &&
		s.dom.matches(ts.Day()) &&
		s.month.matches(int(ts.Month())) &&
		s.weekday.matches(weekdayMondayBased(ts))
}

// String возвращает исходное выражение.
func (s *Schedule) String() string {
	return s.expr
}

// weekdayMondayBased конвертирует time.Weekday (0=воскресенье)
// в нумерацию 0=понедельник .. 6=воскресенье.
func weekdayMondayBased(ts time.Time) int {
	return (int(ts.Weekday()) + 6) % 7
}
