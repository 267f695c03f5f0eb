package convert

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickng/loopconv/ast"
)

const twoFuncs = `
- def:
    name: count
    args: [n]
    body:
      - assign: [while_condition_0, 1]
      - assign: [i, 0]
      - while:
          test: {compare: [i, "<", n]}
          body:
            - augassign: [i, "+", while_condition_0]
      - return: i
- def:
    name: total
    args: [xs]
    body:
      - assign: [s, 0]
      - for:
          target: x
          iter: xs
          body:
            - augassign: [s, "+", x]
      - return: s
- assign: [k, 0]
- while:
    test: {compare: [k, "<", 3]}
    body:
      - augassign: [k, "+", 1]
`

func convert(t *testing.T, c *Converter, src string) string {
	t.Helper()
	mod, err := ast.DecodeBytes([]byte(src))
	require.NoError(t, err)
	require.NoError(t, c.Convert(mod))
	var buf bytes.Buffer
	_, err = c.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestConvert(t *testing.T) {
	out := convert(t, New(nil), twoFuncs)

	assert.Equal(t, 2, strings.Count(out, "_jst.While("), "one call per function loop")
	assert.Contains(t, out, "def while_condition_1():", "generated names avoid existing ones")
	assert.Contains(t, out, "return_name_ids=('i', 'n')")
	assert.Contains(t, out, "return_name_ids=('__for_loop_var_index_0', 's', 'x', 'xs')")
	assert.True(t, strings.HasSuffix(out, "k = 0\nwhile k < 3:\n    k += 1\n"), "module-level loop is untouched:\n%s", out)
}

func TestConvertDeterministic(t *testing.T) {
	first := convert(t, New(nil), twoFuncs)
	second := convert(t, New(nil), twoFuncs)
	assert.Equal(t, first, second)
}

func TestConvertRaw(t *testing.T) {
	c := New(nil)
	c.Raw = true
	out := convert(t, c, twoFuncs)
	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, "# while i < n: carried [i n] created []", lines[0])
	assert.Equal(t, "# for x in xs: carried [s x xs] created []", lines[1])
	assert.Equal(t, "# while k < 3: carried [k] created []", lines[2])
	assert.NotContains(t, out, "_jst.While(")
}

func TestConvertConfig(t *testing.T) {
	c := New(nil)
	c.Config.LoopPrimitive = "rt.loop"
	c.Config.ArgsName = "state"
	c.Config.Prefixes.GetArgs = "read_state"
	out := convert(t, c, twoFuncs)
	assert.Equal(t, 2, strings.Count(out, "rt.loop("))
	assert.Contains(t, out, "def set_args_0(state):")
	assert.Contains(t, out, "def read_state_1():")
	assert.NotContains(t, out, "__args")
}

func TestAddLogFiles(t *testing.T) {
	c := New(nil)
	path := filepath.Join(t.TempDir(), "convert.log")
	require.NoError(t, c.AddLogFiles(path))
	convert(t, c, twoFuncs)
}
