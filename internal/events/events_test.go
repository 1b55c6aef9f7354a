package events

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

func TestAppend_OneJSONLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf)

	if err := log.Append(TypeScheduleEnqueued, map[string]any{
		"schedule_id": "nightly",
		"job_id":      "j-1",
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := log.Append(TypeRunFinished, map[string]any{
		"job_id": "j-1",
		"status": "success",
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 0 is not valid JSON: %v", err)
	}
	if first["event"] != "schedule_enqueued" {
		t.Errorf("expected event type in record, got %v", first["event"])
	}
	if first["schedule_id"] != "nightly" {
		t.Errorf("field lost: %v", first)
	}
	if first["at"] == nil {
		t.Error("record must carry a timestamp")
	}
}

func TestAppend_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf)

	const writers = 10
	const perWriter = 50

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				log.Append(TypeRunStarted, map[string]any{"job_id": "j"})
			}
		}()
	}
	wg.Wait()

	// Каждая строка — законченный JSON: записи не перемешались
	scanner := bufio.NewScanner(&buf)
	count := 0
	for scanner.Scan() {
		var record map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			t.Fatalf("corrupt record %d: %v", count, err)
		}
		count++
	}
	if count != writers*perWriter {
		t.Fatalf("expected %d records, got %d", writers*perWriter, count)
	}
}
