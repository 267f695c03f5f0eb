package forloop

import (
	"testing"

	"github.com/nickng/loopconv/ast"
	"github.com/nickng/loopconv/names"
)

func parseFor(t *testing.T, src string) *ast.For {
	t.Helper()
	mod, err := ast.DecodeBytes([]byte(src))
	if err != nil {
		t.Fatalf("cannot decode tree: %v", err)
	}
	f, ok := mod.Body[0].(*ast.For)
	if !ok {
		t.Fatalf("want a for statement, got %T", mod.Body[0])
	}
	return f
}

// render prints d as the equivalent while loop.
func render(d *Decomposition) string {
	body := append([]ast.Stmt(nil), d.Init...)
	body = append(body, &ast.While{Test: d.Cond, Body: d.Body})
	return ast.Source(&ast.Module{Body: body})
}

func TestNormalise(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		want      string
		iterIndex string
		enumIndex string
	}{
		{
			name: "range stop",
			src:  "- for: {target: i, iter: {call: [range, n]}, body: [{assign: [s, i]}]}\n",
			want: `i = 0
while i < n:
    s = i
    i += 1
`,
			iterIndex: "i",
		},
		{
			name: "range negative step",
			src:  "- for: {target: i, iter: {call: [range, 10, 0, -2]}, body: [pass]}\n",
			want: `i = 10
while i > 0:
    pass
    i += -2
`,
			iterIndex: "i",
		},
		{
			name: "range computed stop",
			src:  "- for: {target: i, iter: {call: [range, 1, {call: [len, xs]}]}, body: [pass]}\n",
			want: `__for_loop_var_len_0 = len(xs)
i = 1
while i < __for_loop_var_len_0:
    pass
    i += 1
`,
			iterIndex: "i",
		},
		{
			name: "range variable step",
			src:  "- for: {target: i, iter: {call: [range, 0, n, k]}, body: [pass]}\n",
			want: `i = 0
while k > 0 and i < n or k < 0 and i > n:
    pass
    i += k
`,
			iterIndex: "i",
		},
		{
			name: "sequence",
			src:  "- for: {target: x, iter: xs, body: [{augassign: [s, '+', x]}]}\n",
			want: `__for_loop_var_index_0 = 0
__for_loop_var_len_0 = len(xs)
while __for_loop_var_index_0 < __for_loop_var_len_0:
    x = xs[__for_loop_var_index_0]
    s += x
    __for_loop_var_index_0 += 1
`,
			iterIndex: "__for_loop_var_index_0",
		},
		{
			name: "computed sequence",
			src:  "- for: {target: x, iter: {call: [f.items]}, body: [pass]}\n",
			want: `__for_loop_iter_var_0 = f.items()
__for_loop_var_index_0 = 0
__for_loop_var_len_0 = len(__for_loop_iter_var_0)
while __for_loop_var_index_0 < __for_loop_var_len_0:
    x = __for_loop_iter_var_0[__for_loop_var_index_0]
    pass
    __for_loop_var_index_0 += 1
`,
			iterIndex: "__for_loop_var_index_0",
		},
		{
			name: "enumerate",
			src:  "- for: {target: {tuple: [i, x]}, iter: {call: [enumerate, xs, 1]}, body: [{assign: [y, x]}]}\n",
			want: `i = 1
__for_loop_var_index_0 = 0
__for_loop_var_len_0 = len(xs)
while __for_loop_var_index_0 < __for_loop_var_len_0:
    x = xs[__for_loop_var_index_0]
    y = x
    i += 1
    __for_loop_var_index_0 += 1
`,
			iterIndex: "__for_loop_var_index_0",
			enumIndex: "i",
		},
	}
	for _, tt := range tests {
		p := NewParser(nil, names.NewPool())
		d, ok := p.Normalise(parseFor(t, tt.src))
		if !ok {
			t.Errorf("%s: loop should be supported", tt.name)
			continue
		}
		if got := render(d); got != tt.want {
			t.Errorf("%s: decomposition mismatch, want:\n%s\ngot:\n%s", tt.name, tt.want, got)
		}
		if d.IterIndex != tt.iterIndex || d.EnumIndex != tt.enumIndex {
			t.Errorf("%s: want indices (%q, %q), got (%q, %q)",
				tt.name, tt.iterIndex, tt.enumIndex, d.IterIndex, d.EnumIndex)
		}
	}
}

func TestNormaliseUnsupported(t *testing.T) {
	tests := []struct {
		name, src string
	}{
		{"for-else", "- for: {target: x, iter: xs, body: [pass], orelse: [pass]}\n"},
		{"break", "- for: {target: x, iter: xs, body: [{if: {test: x, body: [break]}}]}\n"},
		{"continue", "- for: {target: x, iter: xs, body: [continue]}\n"},
		{"tuple target", "- for: {target: {tuple: [a, b]}, iter: pairs, body: [pass]}\n"},
		{"range tuple target", "- for: {target: {tuple: [a, b]}, iter: {call: [range, n]}, body: [pass]}\n"},
	}
	for _, tt := range tests {
		p := NewParser(nil, names.NewPool())
		if d, ok := p.Normalise(parseFor(t, tt.src)); ok {
			t.Errorf("%s: loop should be unsupported, got:\n%s", tt.name, render(d))
		}
	}
}

func TestNestedLoopJumps(t *testing.T) {
	src := `
- for:
    target: x
    iter: xs
    body:
      - while:
          test: x
          body: [break]
`
	p := NewParser(nil, names.NewPool())
	if _, ok := p.Normalise(parseFor(t, src)); !ok {
		t.Errorf("break of an inner loop should not block the outer loop")
	}
}
