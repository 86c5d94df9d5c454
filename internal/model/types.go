package model

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/tidwall/gjson"
)

type Metadata struct {
	InputName   string
	OutputName  string
	InputShape  []int64
	OutputShape []int64
}

// Options controls where the ONNX Runtime shared library is found.
type Options struct {
	LibraryPath string
}

// ReadLabels returns the id2label table of a Hugging Face config.json ordered
// by class index.
func ReadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model config: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid model config JSON")
	}

	id2label := gjson.GetBytes(data, "id2label")
	if !id2label.IsObject() {
		return nil, fmt.Errorf("model config has no id2label table")
	}

	type entry struct {
		index int
		label string
	}
	var entries []entry
	var parseErr error
	id2label.ForEach(func(key, value gjson.Result) bool {
		i, err := strconv.Atoi(key.String())
		if err != nil {
			parseErr = fmt.Errorf("invalid class index %q: %w", key.String(), err)
			return false
		}
		entries = append(entries, entry{index: i, label: value.String()})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	sort.Slice(entries, func(a, b int) bool { return entries[a].index < entries[b].index })

	labels := make([]string, len(entries))
	for i, e := range entries {
		if e.index != i {
			return nil, fmt.Errorf("class indices are not contiguous at %d", i)
		}
		labels[i] = e.label
	}
	return labels, nil
}
