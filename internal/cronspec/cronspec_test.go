package cronspec

import (
	"errors"
	"testing"
	"time"
)

// mustParse — хелпер для тестов, где выражение заведомо валидно.
func mustParse(t *testing.T, expr string) *Schedule {
	t.Helper()
	s, err := Parse(expr)
	if err != nil {
		t.Fatalf("Parse(%q): unexpected error: %v", expr, err)
	}
	return s
}

// at строит момент времени для проверки Matches.
// 2026-06-01 — понедельник.
func at(day, hour, minute int) time.Time {
	return time.Date(2026, time.June, day, hour, minute, 0, 0, time.UTC)
}

func TestParse_Valid(t *testing.T) {
	exprs := []string{
		"* * * * *",
		"0 0 * * *",
		"*/5 * * * *",
		"*/1 * * * *",
		"30 14 1 6 0",
		"59 23 31 12 6",
	}

	for _, expr := range exprs {
		if _, err := Parse(expr); err != nil {
			t.Errorf("Parse(%q): unexpected error: %v", expr, err)
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := []struct {
		expr  string
		field string
	}{
		{"* * * *", ""},               // 4 поля
		{"* * * * * *", ""},           // 6 полей
		{"", ""},                      // пусто
		{"60 * * * *", "minute"},      // минута вне диапазона
		{"* 24 * * *", "hour"},        // час вне диапазона
		{"* * 0 * *", "day-of-month"}, // день месяца от 1
		{"* * 32 * *", "day-of-month"},
		{"* * * 0 *", "month"},
		{"* * * 13 *", "month"},
		{"* * * * 7", "weekday"},  // 0..6
		{"abc * * * *", "minute"}, // не число
		{"*/0 * * * *", "minute"}, // нулевой шаг
		{"*/x * * * *", "minute"}, // нечисловой шаг
		{"* */2 * * *", "hour"},   // шаг вне поля минуты
		{"* * * * */2", "weekday"},
		{"1-5 * * * *", "minute"}, // диапазоны не поддерживаются
		{"1,2 * * * *", "minute"}, // списки не поддерживаются
	}

	for _, c := range cases {
		_, err := Parse(c.expr)
		if err == nil {
			t.Errorf("Parse(%q): expected error, got nil", c.expr)
			continue
		}

		var ce *ConfigError
		if !errors.As(err, &ce) {
			t.Errorf("Parse(%q): expected *ConfigError, got %T", c.expr, err)
			continue
		}
		if ce.Field != c.field {
			t.Errorf("Parse(%q): expected field %q, got %q", c.expr, c.field, ce.Field)
		}
	}
}

func TestMatches_Wildcard(t *testing.T) {
	s := mustParse(t, "* * * * *")

	for _, ts := range []time.Time{at(1, 0, 0), at(15, 12, 30), at(30, 23, 59)} {
		if !s.Matches(ts) {
			t.Errorf("wildcard should match %v", ts)
		}
	}
}

func TestMatches_Literal(t *testing.T) {
	s := mustParse(t, "30 14 1 6 0")

	// 1 июня 2026 — понедельник (weekday 0)
	if !s.Matches(at(1, 14, 30)) {
		t.Error("expected match at 14:30 on Mon 1 June")
	}
	if s.Matches(at(1, 14, 31)) {
		t.Error("should not match at 14:31")
	}
	if s.Matches(at(1, 15, 30)) {
		t.Error("should not match at 15:30")
	}
	// 8 июня — тоже понедельник, но день месяца другой
	if s.Matches(at(8, 14, 30)) {
		t.Error("should not match on 8 June")
	}
}

func TestMatches_MinuteStep(t *testing.T) {
	s := mustParse(t, "*/15 * * * *")

	for _, m := range []int{0, 15, 30, 45} {
		if !s.Matches(at(1, 10, m)) {
			t.Errorf("*/15 should match minute %d", m)
		}
	}
	for _, m := range []int{1, 14, 16, 59} {
		if s.Matches(at(1, 10, m)) {
			t.Errorf("*/15 should not match minute %d", m)
		}
	}
}

func TestMatches_WeekdayMondayBased(t *testing.T) {
	// День недели 0 = понедельник, 6 = воскресенье.
	monday := mustParse(t, "* * * * 0")
	sunday := mustParse(t, "* * * * 6")

	// 1 июня 2026 — понедельник, 7 июня — воскресенье
	if !monday.Matches(at(1, 10, 0)) {
		t.Error("weekday 0 should match Monday")
	}
	if monday.Matches(at(7, 10, 0)) {
		t.Error("weekday 0 should not match Sunday")
	}
	if !sunday.Matches(at(7, 10, 0)) {
		t.Error("weekday 6 should match Sunday")
	}
	if sunday.Matches(at(1, 10, 0)) {
		t.Error("weekday 6 should not match Monday")
	}
}

func TestMatches_Pure(t *testing.T) {
	s := mustParse(t, "*/5 10 * * *")
	ts := at(15, 10, 25)

	first := s.Matches(ts)
	for i := 0; i < 100; i++ {
		if s.Matches(ts) != first {
			t.Fatal("Matches must be deterministic for identical inputs")
		}
	}
}
