package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestReadLabels(t *testing.T) {
	t.Run("orders labels by class index", func(t *testing.T) {
		path := writeConfig(t, `{"id2label": {"2": "Cardboard", "0": "Battery", "1": "Biological"}}`)

		labels, err := ReadLabels(path)

		require.NoError(t, err)
		assert.Equal(t, []string{"Battery", "Biological", "Cardboard"}, labels)
	})

	t.Run("orders numerically not lexically", func(t *testing.T) {
		data := `{"id2label": {"0":"a","1":"b","2":"c","3":"d","4":"e","5":"f","6":"g","7":"h","8":"i","9":"j","10":"k"}}`

		labels, err := ReadLabels(writeConfig(t, data))

		require.NoError(t, err)
		assert.Equal(t, "k", labels[10])
	})

	tests := []struct {
		name string
		data string
	}{
		{name: "missing table", data: `{"architectures": ["SiglipForImageClassification"]}`},
		{name: "non-numeric index", data: `{"id2label": {"zero": "Battery"}}`},
		{name: "gap in indices", data: `{"id2label": {"0": "Battery", "2": "Cardboard"}}`},
		{name: "invalid JSON", data: `{"id2label": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadLabels(writeConfig(t, tt.data))

			assert.Error(t, err)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadLabels(filepath.Join(t.TempDir(), "config.json"))

		assert.Error(t, err)
	})
}
