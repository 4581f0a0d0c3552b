package eval_test

import (
	"errors"
	"strings"
	"testing"

	"evalrag/src/core/eval"
)

func TestLoadDataset(t *testing.T) {
	input := `{"id":"q1","question":"What is the capital of France?","expected_answer":"Paris"}

{"id":"q2","question":"Largest ocean?","expected_answer":"Pacific","expected_contexts":["The Pacific is the largest ocean."]}
`

	items, err := eval.LoadDataset(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadDataset failed: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].ID != "q1" || items[0].ExpectedAnswer != "Paris" {
		t.Errorf("first item = %+v", items[0])
	}
	if len(items[1].ExpectedContexts) != 1 {
		t.Errorf("expected contexts not loaded: %+v", items[1])
	}
}

func TestLoadDatasetMalformedRecords(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
	}{
		{
			name:     "invalid json",
			input:    "{\"id\":\"q1\",\"question\":\"ok\",\"expected_answer\":\"ok\"}\nnot json\n",
			wantLine: 2,
		},
		{
			name:     "missing id",
			input:    "{\"question\":\"ok\",\"expected_answer\":\"ok\"}\n",
			wantLine: 1,
		},
		{
			name:     "missing question",
			input:    "{\"id\":\"q1\",\"expected_answer\":\"ok\"}\n",
			wantLine: 1,
		},
		{
			name:     "missing expected answer",
			input:    "{\"id\":\"q1\",\"question\":\"ok\"}\n",
			wantLine: 1,
		},
		{
			name:     "duplicate id",
			input:    "{\"id\":\"q1\",\"question\":\"a\",\"expected_answer\":\"a\"}\n{\"id\":\"q1\",\"question\":\"b\",\"expected_answer\":\"b\"}\n",
			wantLine: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eval.LoadDataset(strings.NewReader(tt.input))
			var dsErr *eval.DatasetError
			if !errors.As(err, &dsErr) {
				t.Fatalf("got %v, want DatasetError", err)
			}
			if dsErr.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", dsErr.Line, tt.wantLine)
			}
		})
	}
}

func TestLoadDatasetEmpty(t *testing.T) {
	items, err := eval.LoadDataset(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadDataset failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("got %d items, want 0", len(items))
	}
}
