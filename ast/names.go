package ast

import (
	"strings"
	"unicode"
)

// FullName returns the dotted path of an attribute chain rooted at a Name,
// e.g. "obj.field.x". ok is false if the chain has any other root.
func FullName(a *Attribute) (name string, ok bool) {
	switch v := a.Value.(type) {
	case *Name:
		return v.ID + "." + a.Attr, true
	case *Attribute:
		prefix, ok := FullName(v)
		if !ok {
			return "", false
		}
		return prefix + "." + a.Attr, true
	}
	return "", false
}

// RootName returns the Name an attribute chain starts from, or nil.
func RootName(a *Attribute) *Name {
	switch v := a.Value.(type) {
	case *Name:
		return v
	case *Attribute:
		return RootName(v)
	}
	return nil
}

// VarName returns the variable name a reference denotes: the identifier
// of a Name or the dotted path of an Attribute.
func VarName(e Expr) (string, bool) {
	switch e := e.(type) {
	case *Name:
		return e.ID, true
	case *Attribute:
		return FullName(e)
	}
	return "", false
}

// RefCtx returns the access mode of a Name or Attribute reference.
func RefCtx(e Expr) Ctx {
	switch e := e.(type) {
	case *Name:
		return e.Ctx
	case *Attribute:
		return e.Ctx
	}
	return Load
}

// IsIdent reports whether s is a valid identifier.
func IsIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

// SplitPath splits a dotted path into identifiers. ok is false if any
// segment is not an identifier.
func SplitPath(s string) (path []string, ok bool) {
	path = strings.Split(s, ".")
	for _, p := range path {
		if !IsIdent(p) {
			return nil, false
		}
	}
	return path, true
}

// IsDottedPath reports whether s is "a.b[.c...]" (at least two segments).
func IsDottedPath(s string) bool {
	path, ok := SplitPath(s)
	return ok && len(path) > 1
}

// SetCtx marks e as an assignment target of the given context, recursing
// into tuple and list targets. Attribute and subscript values stay loads.
func SetCtx(e Expr, ctx Ctx) {
	switch e := e.(type) {
	case *Name:
		e.Ctx = ctx
	case *Attribute:
		e.Ctx = ctx
	case *Subscript:
		e.Ctx = ctx
	case *Tuple:
		e.Ctx = ctx
		for _, elt := range e.Elts {
			SetCtx(elt, ctx)
		}
	case *List:
		e.Ctx = ctx
		for _, elt := range e.Elts {
			SetCtx(elt, ctx)
		}
	}
}
