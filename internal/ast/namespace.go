package ast

import (
	"encoding/json"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/text/unicode/norm"
)

// ScopeCount is the maximum depth of a namespace.
const ScopeCount = 16

// Namespace is a fixed-depth symbol path. The first scope names the module.
type Namespace struct {
	scopes [ScopeCount]string
}

// NormalizeName returns name in NFC so visually equal names compare equal.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

// ParseNamespace parses "@Module.Type.Member". The leading "@" is optional.
// Scopes past ScopeCount are dropped. An empty scope, as in "@A..B", makes
// the whole path invalid and yields the empty namespace.
func ParseNamespace(s string) Namespace {
	s = strings.TrimPrefix(s, "@")
	if s == "" {
		return Namespace{}
	}
	return NamespaceOf(strings.SplitN(s, ".", ScopeCount+1)...)
}

// NamespaceOf builds a namespace from already split scopes. Returns the
// empty namespace when any kept scope is empty.
func NamespaceOf(scopes ...string) Namespace {
	var ns Namespace
	for i, s := range scopes {
		if i >= ScopeCount {
			break
		}
		if s == "" {
			return Namespace{}
		}
		ns.scopes[i] = NormalizeName(s)
	}
	return ns
}

func (ns Namespace) Size() int {
	for i, s := range ns.scopes {
		if s == "" {
			return i
		}
	}
	return ScopeCount
}

func (ns Namespace) IsEmpty() bool { return ns.scopes[0] == "" }

func (ns Namespace) Scope(i int) string {
	if i < 0 || i >= ScopeCount {
		return ""
	}
	return ns.scopes[i]
}

func (ns Namespace) Scopes() []string {
	return append([]string(nil), ns.scopes[:ns.Size()]...)
}

func (ns Namespace) First() string { return ns.scopes[0] }

func (ns Namespace) Last() string {
	if n := ns.Size(); n > 0 {
		return ns.scopes[n-1]
	}
	return ""
}

// Parent drops the last scope.
func (ns Namespace) Parent() Namespace {
	if n := ns.Size(); n > 0 {
		ns.scopes[n-1] = ""
	}
	return ns
}

// Child appends a scope. Returns ns unchanged when full.
func (ns Namespace) Child(name string) Namespace {
	if n := ns.Size(); n < ScopeCount {
		ns.scopes[n] = NormalizeName(name)
	}
	return ns
}

func (ns Namespace) Equal(other Namespace) bool { return ns == other }

func (ns Namespace) String() string {
	if ns.IsEmpty() {
		return ""
	}
	return "@" + strings.Join(ns.Scopes(), ".")
}

// LocalString omits the module scope.
func (ns Namespace) LocalString() string {
	scopes := ns.Scopes()
	if len(scopes) < 2 {
		return ""
	}
	return strings.Join(scopes[1:], ".")
}

func (ns Namespace) MarshalJSON() ([]byte, error) {
	return json.Marshal(ns.Scopes())
}

func (ns *Namespace) UnmarshalJSON(b []byte) error {
	var scopes []string
	if err := json.Unmarshal(b, &scopes); err != nil {
		return err
	}
	*ns = NamespaceOf(scopes...)
	return nil
}

func (ns Namespace) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(ns.Scopes())
}

func (ns *Namespace) DecodeMsgpack(dec *msgpack.Decoder) error {
	var scopes []string
	if err := dec.Decode(&scopes); err != nil {
		return err
	}
	*ns = NamespaceOf(scopes...)
	return nil
}
