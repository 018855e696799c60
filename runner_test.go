package itinera_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/itinera"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line    string
		want    itinera.Command
		command bool
		wantErr bool
	}{
		{line: "Paris", command: false},
		{line: "  next week ", command: false},
		{line: "/new", want: itinera.Command{Name: "/new"}, command: true},
		{line: "/RETRY", want: itinera.Command{Name: "/retry"}, command: true},
		{line: "/load 42", want: itinera.Command{Name: "/load", Arg: "42"}, command: true},
		{line: "/load", want: itinera.Command{Name: "/load"}, command: true, wantErr: true},
		{line: "/load abc", want: itinera.Command{Name: "/load", Arg: "abc"}, command: true, wantErr: true},
		{line: "/dance", want: itinera.Command{Name: "/dance"}, command: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cmd, ok, err := itinera.ParseCommand(tt.line)
			assert.Equal(t, tt.command, ok)
			assert.Equal(t, tt.wantErr, err != nil)
			if tt.command {
				assert.Equal(t, tt.want, cmd)
			}
		})
	}

	_, _, err := itinera.ParseCommand("/dance")
	assert.True(t, errors.Is(err, itinera.ErrUnknownCommand))
}

func TestRunner_HelpUnknownAndQuit(t *testing.T) {
	client, err := itinera.New("http://127.0.0.1:1")
	require.NoError(t, err)

	var out bytes.Buffer
	r := &itinera.Runner{
		Input:  strings.NewReader("/help\n/dance\n/quit\nParis\n"),
		Output: &out,
	}
	require.NoError(t, r.Run(context.Background(), client))

	assert.Contains(t, out.String(), "/download")
	assert.Contains(t, out.String(), `unknown command "/dance"`)
}

func TestRunner_EndOfInput(t *testing.T) {
	client, err := itinera.New("http://127.0.0.1:1")
	require.NoError(t, err)

	r := &itinera.Runner{Input: strings.NewReader("")}
	assert.NoError(t, r.Run(context.Background(), client))
}

func TestRunner_RequiresInput(t *testing.T) {
	client, err := itinera.New("http://127.0.0.1:1")
	require.NoError(t, err)

	assert.Error(t, (&itinera.Runner{}).Run(context.Background(), client))
}
