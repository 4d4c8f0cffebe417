package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bearlytools/binfield/errors"
)

const yamlConfig = `
logging:
  level: debug
display:
  base: 16
layouts:
  - name: Header
    size: 16
    fields:
      lo: [0, 4]
      flag: 4
      ctrl: {_index_: [8, 16], mode: [0, 4], on: 4}
  - name: Tail
    fields:
      rest: {start: 8}
  - name: Sparse
    mask: "0xf0f0"
`

const jsonConfig = `{
  "logging": {"level": "warn"},
  "layouts": [
    {
      "name": "Header",
      "size": 16,
      "fields": {
        "lo": [0, 4],
        "flag": 4,
        "ctrl": {"_index_": [8, 16], "mode": [0, 4], "on": 4}
      }
    }
  ]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, "info", c.Logging.Level)
	assert.Equal(t, 0, c.Display.Base)
	assert.Empty(t, c.Layouts)

	lvl, err := c.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, lvl)
}

func TestLoadMissing(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)

	c, err = Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadYAML(t *testing.T) {
	c, err := Load(writeFile(t, "layouts.yaml", yamlConfig))
	require.NoError(t, err)

	lvl, err := c.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, lvl)
	assert.Equal(t, 16, c.Display.Base)
	require.Len(t, c.Layouts, 3)

	types, err := c.Types()
	require.NoError(t, err)
	require.Len(t, types, 3)

	header := types[0]
	assert.Equal(t, "Header", header.Name())
	assert.Equal(t, 16, header.Size())

	v, err := header.Parse("0x0000", 16)
	require.NoError(t, err)
	require.NoError(t, v.SetPath("ctrl.mode", 0xa))
	require.NoError(t, v.SetPath("ctrl.on", 1))
	require.NoError(t, v.SetPath("flag", 1))
	assert.EqualValues(t, 0x1a10, v.Int64())

	tail := types[1]
	assert.False(t, tail.Fixed())

	sparse, err := c.Type("Sparse")
	require.NoError(t, err)
	assert.EqualValues(t, 0xf0f0, sparse.Mask().Int64())

	_, err = c.Type("Missing")
	assert.ErrorIs(t, err, errors.ErrIndex)
}

func TestLoadJSON(t *testing.T) {
	c, err := Load(writeFile(t, "layouts.json", jsonConfig))
	require.NoError(t, err)

	assert.Equal(t, "warn", c.Logging.Level)
	assert.Equal(t, 0, c.Display.Base, "defaults survive for keys the file leaves out")

	header, err := c.Type("Header")
	require.NoError(t, err)

	v := header.Zero()
	require.NoError(t, v.SetPath("ctrl.on", 1))
	assert.EqualValues(t, 0x1000, v.Int64())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		desc    string
		name    string
		content string
		loadErr bool
		err     error
	}{
		{
			desc:    "bad yaml",
			name:    "bad.yaml",
			content: "layouts: [",
			loadErr: true,
			err:     errors.ErrLayout,
		},
		{
			desc:    "bad json",
			name:    "bad.json",
			content: `{"layouts": `,
			loadErr: true,
			err:     errors.ErrLayout,
		},
		{
			desc:    "string size",
			name:    "size.yaml",
			content: "layouts:\n  - name: A\n    size: eight\n",
			err:     errors.ErrType,
		},
		{
			desc:    "fractional size",
			name:    "size.json",
			content: `{"layouts": [{"name": "A", "size": 8.5}]}`,
			err:     errors.ErrType,
		},
		{
			desc:    "zero size",
			name:    "zero.yaml",
			content: "layouts:\n  - name: A\n    size: 0\n",
			err:     errors.ErrValue,
		},
		{
			desc:    "list mask",
			name:    "mask.yaml",
			content: "layouts:\n  - name: A\n    mask: [1]\n",
			err:     errors.ErrType,
		},
		{
			desc:    "bad string mask",
			name:    "mask2.yaml",
			content: "layouts:\n  - name: A\n    mask: \"0xzz\"\n",
			err:     errors.ErrValue,
		},
		{
			desc:    "overlap",
			name:    "overlap.yaml",
			content: "layouts:\n  - name: A\n    fields:\n      a: [0, 4]\n      b: 3\n",
			err:     errors.ErrLayout,
		},
		{
			desc:    "field beyond size",
			name:    "beyond.yaml",
			content: "layouts:\n  - name: A\n    size: 8\n    fields:\n      a: [4, 12]\n",
			err:     errors.ErrLayout,
		},
		{
			desc:    "no name",
			name:    "noname.yaml",
			content: "layouts:\n  - size: 8\n",
			err:     errors.ErrValue,
		},
	}

	for _, test := range tests {
		c, err := Load(writeFile(t, test.name, test.content))
		if test.loadErr {
			assert.ErrorIs(t, err, test.err, test.desc)
			continue
		}
		require.NoError(t, err, test.desc)

		_, err = c.Types()
		assert.ErrorIs(t, err, test.err, test.desc)
	}
}

func TestSave(t *testing.T) {
	for _, name := range []string{"out.yaml", "out.json"} {
		in, err := Load(writeFile(t, "in.yaml", yamlConfig))
		require.NoError(t, err)

		path := filepath.Join(t.TempDir(), "sub", name)
		require.NoError(t, Save(in, path), name)

		out, err := Load(path)
		require.NoError(t, err, name)
		assert.Equal(t, in.Logging, out.Logging, name)
		assert.Equal(t, in.Display, out.Display, name)

		types, err := out.Types()
		require.NoError(t, err, name)
		require.Len(t, types, 3, name)
		assert.Equal(t, "Header<16 bits, 2 B, mask 0xffff>{lo[0:4], flag[4:5], ctrl[8:16]{mode[0:4], on[4:5]}}", types[0].String(), name)
	}
}
