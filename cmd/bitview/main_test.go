package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bitsFile = `package net

Layout Header size 8 {
	Lo @0:4
	Hi @4:8
}
`

const yamlFile = `
display:
  base: 16
layouts:
  - name: Word
    size: 16
    fields:
      ctrl: {_index_: [8, 16], mode: [0, 4]}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestShow(t *testing.T) {
	layout := writeFile(t, "net.bits", bitsFile)

	tests := []struct {
		desc string
		args []string
		want string
	}{
		{
			desc: "prefixed value",
			args: []string{"show", "--layout", layout, "--type", "Header", "0xba"},
			want: "Header: 186 0xba 0b1011_1010\n  Lo: 10 0xa 0b1010\n  Hi: 11 0xb 0b1011\n",
		},
		{
			desc: "set a field",
			args: []string{"show", "--layout", layout, "--type", "Header", "--set", "Lo=0xa", "0xb0"},
			want: "Header: 186 0xba 0b1011_1010\n  Lo: 10 0xa 0b1010\n  Hi: 11 0xb 0b1011\n",
		},
		{
			desc: "explicit base",
			args: []string{"show", "--layout", layout, "--type", "Header", "--base", "2", "--json", "1011_1010"},
			want: "{\"x\":186}\n",
		},
		{
			desc: "no value",
			args: []string{"show", "--layout", layout, "--type", "Header", "--set", "Hi=1"},
			want: "Header: 16 0x10 0b0001_0000\n  Lo: 0 0x0 0b0000\n  Hi: 1 0x1 0b0001\n",
		},
	}

	for _, test := range tests {
		out := &bytes.Buffer{}
		err := newApp(out).Run(append([]string{"bitview"}, test.args...))
		require.NoError(t, err, test.desc)
		assert.Equal(t, test.want, out.String(), test.desc)
	}
}

func TestShowConfigBase(t *testing.T) {
	layout := writeFile(t, "layouts.yaml", yamlFile)

	out := &bytes.Buffer{}
	err := newApp(out).Run([]string{"bitview", "--config", layout, "show", "--layout", layout, "--type", "Word", "--set", "ctrl.mode=0xb", "a00"})
	require.NoError(t, err)
	assert.Equal(t, "Word: 2816 0xb00 0b0000_1011_0000_0000\n  ctrl: 11 0xb 0b0000_1011\n    mode: 11 0xb 0b1011\n", out.String())
}

func TestTypes(t *testing.T) {
	layout := writeFile(t, "layouts.yaml", yamlFile)

	out := &bytes.Buffer{}
	require.NoError(t, newApp(out).Run([]string{"bitview", "types", "--layout", layout}))
	assert.Equal(t, "Word<16 bits, 2 B, mask 0xffff>{ctrl[8:16]{mode[0:4]}}\n", out.String())
}

func TestShowErrors(t *testing.T) {
	layout := writeFile(t, "net.bits", bitsFile)

	tests := []struct {
		desc string
		args []string
	}{
		{desc: "missing layout file", args: []string{"show", "--layout", filepath.Join(t.TempDir(), "none.bits"), "--type", "Header"}},
		{desc: "unknown type", args: []string{"show", "--layout", layout, "--type", "Nope"}},
		{desc: "bad value", args: []string{"show", "--layout", layout, "--type", "Header", "0xzz"}},
		{desc: "bad set", args: []string{"show", "--layout", layout, "--type", "Header", "--set", "Lo", "1"}},
		{desc: "set overflow", args: []string{"show", "--layout", layout, "--type", "Header", "--set", "Lo=0x10", "1"}},
		{desc: "unknown field", args: []string{"show", "--layout", layout, "--type", "Header", "--set", "Mid=1", "1"}},
		{desc: "bad log level", args: []string{"--log-level", "loud", "show", "--layout", layout, "--type", "Header"}},
	}

	for _, test := range tests {
		out := &bytes.Buffer{}
		err := newApp(out).Run(append([]string{"bitview"}, test.args...))
		assert.Error(t, err, test.desc)
	}
}
