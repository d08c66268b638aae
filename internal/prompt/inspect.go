package prompt

import (
	"sort"
	"strings"
	"text/template/parse"
)

// Reference is one access to a root variable inside a body.
type Reference struct {
	Name   string
	Line   int
	Column int
	offset int
}

// BodyInfo summarizes what a body reads from the render context and how it
// is structured.
type BodyInfo struct {
	// References lists every root variable access in source order.
	References []Reference
	// UsesWholeContext is set when the root context itself is handed to a
	// function or ranged over, so any variable may be read indirectly.
	UsesWholeContext bool
	Conditionals     int
	Loops            int
	MaxDepth         int
}

// Names returns the distinct referenced names, sorted.
func (b *BodyInfo) Names() []string {
	seen := make(map[string]struct{}, len(b.References))
	names := make([]string, 0, len(b.References))
	for _, ref := range b.References {
		if _, ok := seen[ref.Name]; ok {
			continue
		}
		seen[ref.Name] = struct{}{}
		names = append(names, ref.Name)
	}
	sort.Strings(names)
	return names
}

// Count returns how many times name is referenced.
func (b *BodyInfo) Count(name string) int {
	n := 0
	for _, ref := range b.References {
		if ref.Name == name {
			n++
		}
	}
	return n
}

// First returns the earliest reference to name.
func (b *BodyInfo) First(name string) (Reference, bool) {
	for _, ref := range b.References {
		if ref.Name == name {
			return ref, true
		}
	}
	return Reference{}, false
}

// Inspect parses body without executing it and reports the root variables it
// references. Parse failures are returned as *SyntaxError.
func Inspect(body string) (*BodyInfo, error) {
	return inspectBody(BodyTemplate, body)
}

func inspectBody(name, body string) (*BodyInfo, error) {
	tmpl, err := parseBody(name, body)
	if err != nil {
		return nil, err
	}

	in := &inspector{
		text:    body,
		info:    &BodyInfo{},
		invoked: make(map[string]bool),
	}

	trees := make(map[string]*parse.Tree)
	for _, t := range tmpl.Templates() {
		if t.Tree != nil {
			trees[t.Name()] = t.Tree
		}
	}

	if root := trees[tmpl.Name()]; root != nil {
		in.walkTree(root, true)
	}

	// Named templates see the root context only when invoked with it.
	visited := map[string]bool{tmpl.Name(): true}
	for {
		progressed := false
		for treeName := range in.invoked {
			if visited[treeName] {
				continue
			}
			visited[treeName] = true
			progressed = true
			if tree := trees[treeName]; tree != nil {
				in.walkTree(tree, true)
			}
		}
		if !progressed {
			break
		}
	}
	names := make([]string, 0, len(trees))
	for treeName := range trees {
		if !visited[treeName] {
			names = append(names, treeName)
		}
	}
	sort.Strings(names)
	for _, treeName := range names {
		in.walkTree(trees[treeName], false)
	}

	sort.SliceStable(in.info.References, func(i, j int) bool {
		return in.info.References[i].offset < in.info.References[j].offset
	})
	return in.info, nil
}

type inspector struct {
	text    string
	info    *BodyInfo
	invoked map[string]bool

	// per tree
	dollarRoot bool
	rootVars   map[string]bool
	depth      int
}

func (in *inspector) walkTree(tree *parse.Tree, root bool) {
	in.dollarRoot = root
	in.rootVars = make(map[string]bool)
	in.depth = 0
	in.walk(tree.Root, root)
}

func (in *inspector) walk(node parse.Node, rootDot bool) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, child := range n.Nodes {
			in.walk(child, rootDot)
		}
	case *parse.ActionNode:
		in.pipe(n.Pipe, rootDot)
	case *parse.IfNode:
		in.info.Conditionals++
		in.branch(&n.BranchNode, rootDot, rootDot)
	case *parse.WithNode:
		in.info.Conditionals++
		in.branch(&n.BranchNode, rootDot, in.pipeIsRoot(n.Pipe, rootDot))
	case *parse.RangeNode:
		in.info.Loops++
		in.branch(&n.BranchNode, rootDot, false)
	case *parse.TemplateNode:
		if in.pipeIsRoot(n.Pipe, rootDot) {
			in.invoked[n.Name] = true
			return
		}
		in.pipe(n.Pipe, rootDot)
	}
}

func (in *inspector) branch(b *parse.BranchNode, rootDot, bodyRoot bool) {
	in.pipe(b.Pipe, rootDot)
	in.depth++
	if in.depth > in.info.MaxDepth {
		in.info.MaxDepth = in.depth
	}
	in.walk(b.List, bodyRoot)
	in.depth--
	in.walk(b.ElseList, rootDot)
}

func (in *inspector) pipe(p *parse.PipeNode, rootDot bool) {
	if p == nil {
		return
	}
	if len(p.Decl) == 1 {
		name := p.Decl[0].Ident[0]
		if in.pipeIsRoot(p, rootDot) {
			in.rootVars[name] = true
			return
		}
		// A later assignment rebinds the variable away from the root.
		delete(in.rootVars, name)
	}
	for _, cmd := range p.Cmds {
		args := cmd.Args
		if in.indexesRoot(cmd, rootDot) {
			key := args[2].(*parse.StringNode)
			in.ref(key.Text, key.Position())
			args = args[3:]
		}
		for _, arg := range args {
			in.arg(arg, rootDot)
		}
	}
}

// indexesRoot reports whether cmd is index applied to the root context with
// a literal key, which reads that key like a field access.
func (in *inspector) indexesRoot(cmd *parse.CommandNode, rootDot bool) bool {
	if len(cmd.Args) < 3 {
		return false
	}
	fn, ok := cmd.Args[0].(*parse.IdentifierNode)
	if !ok || fn.Ident != "index" {
		return false
	}
	if _, ok := cmd.Args[2].(*parse.StringNode); !ok {
		return false
	}
	switch n := cmd.Args[1].(type) {
	case *parse.DotNode:
		return rootDot
	case *parse.VariableNode:
		return len(n.Ident) == 1 && in.isRootVar(n.Ident[0])
	}
	return false
}

func (in *inspector) arg(node parse.Node, rootDot bool) {
	switch n := node.(type) {
	case *parse.FieldNode:
		if rootDot {
			in.ref(n.Ident[0], n.Position())
		}
	case *parse.VariableNode:
		if !in.isRootVar(n.Ident[0]) {
			return
		}
		if len(n.Ident) > 1 {
			in.ref(n.Ident[1], n.Position())
			return
		}
		in.info.UsesWholeContext = true
	case *parse.DotNode:
		if rootDot {
			in.info.UsesWholeContext = true
		}
	case *parse.ChainNode:
		in.arg(n.Node, rootDot)
	case *parse.PipeNode:
		in.pipe(n, rootDot)
	}
}

func (in *inspector) isRootVar(name string) bool {
	return (name == "$" && in.dollarRoot) || in.rootVars[name]
}

func (in *inspector) pipeIsRoot(p *parse.PipeNode, rootDot bool) bool {
	if p == nil || len(p.Cmds) != 1 || len(p.Cmds[0].Args) != 1 {
		return false
	}
	switch n := p.Cmds[0].Args[0].(type) {
	case *parse.DotNode:
		return rootDot
	case *parse.VariableNode:
		return len(n.Ident) == 1 && in.isRootVar(n.Ident[0])
	}
	return false
}

func (in *inspector) ref(name string, pos parse.Pos) {
	line, col := lineColumn(in.text, int(pos))
	in.info.References = append(in.info.References, Reference{
		Name:   name,
		Line:   line,
		Column: col,
		offset: int(pos),
	})
}

func lineColumn(text string, offset int) (int, int) {
	if offset > len(text) {
		offset = len(text)
	}
	if offset < 0 {
		offset = 0
	}
	before := text[:offset]
	line := 1 + strings.Count(before, "\n")
	col := offset - strings.LastIndex(before, "\n")
	return line, col
}
