package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireSource(t *testing.T) {
	tests := []struct {
		name      string
		dir       string
		file      string
		allowFile bool
		wantErr   bool
	}{
		{name: "dir", dir: "data", allowFile: true},
		{name: "file", file: "data/city.csv", allowFile: true},
		{name: "dir only", dir: "data"},
		{name: "both", dir: "data", file: "data/city.csv", allowFile: true, wantErr: true},
		{name: "none", allowFile: true, wantErr: true},
		{name: "file not allowed", file: "data/city.csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dataDir, dataFile = tt.dir, tt.file

			t.Cleanup(func() { dataDir, dataFile = "", "" })

			err := requireSource(tt.allowFile)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewRootCmd(t *testing.T) {
	cmd := newRootCmd()

	names := make([]string, 0)

	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}

	assert.ElementsMatch(t, []string{"create", "update", "watch"}, names)

	for _, flag := range []string{"config", "dir", "file", "index", "max-batch-size", "concurrency", "es-address"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}
