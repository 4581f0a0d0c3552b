package eval

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Dataset lines can hold long expected contexts.
const maxDatasetLineBytes = 4 * 1024 * 1024

// LoadDataset reads a JSONL dataset, one item per line. Blank lines are
// skipped. Any malformed record fails the load with its line number; nothing
// is dispatched from a partially valid dataset.
func LoadDataset(r io.Reader) ([]DatasetItem, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, maxDatasetLineBytes)
	scanner.Buffer(buf, maxDatasetLineBytes)

	var items []DatasetItem
	seen := make(map[string]int)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var item DatasetItem
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			return nil, &DatasetError{Line: lineNo, Reason: err.Error()}
		}

		if item.ID == "" {
			return nil, &DatasetError{Line: lineNo, Reason: "missing id"}
		}
		if item.Question == "" {
			return nil, &DatasetError{Line: lineNo, Reason: "missing question"}
		}
		if item.ExpectedAnswer == "" {
			return nil, &DatasetError{Line: lineNo, Reason: "missing expected_answer"}
		}
		if first, ok := seen[item.ID]; ok {
			return nil, &DatasetError{Line: lineNo, Reason: fmt.Sprintf("duplicate id %q (first seen on line %d)", item.ID, first)}
		}
		seen[item.ID] = lineNo

		items = append(items, item)
	}

	if err := scanner.Err(); err != nil {
		return nil, &DatasetError{Line: lineNo + 1, Reason: err.Error()}
	}

	return items, nil
}
