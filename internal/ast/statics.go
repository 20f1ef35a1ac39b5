package ast

import (
	"maps"
	"slices"
)

// STypes indexes loaded type files by path.
type STypes struct {
	ByPath map[string]Id
}

func (s *STypes) CloneStatic() any {
	return &STypes{ByPath: maps.Clone(s.ByPath)}
}

// SModules indexes loaded module files by path.
type SModules struct {
	ByPath map[string]Id
}

func (s *SModules) CloneStatic() any {
	return &SModules{ByPath: maps.Clone(s.ByPath)}
}

// SLoadQueue holds file paths waiting for the load system.
type SLoadQueue struct {
	Paths []string
}

func (s *SLoadQueue) Push(paths ...string) {
	s.Paths = append(s.Paths, paths...)
}

// Drain returns the queued paths and empties the queue.
func (s *SLoadQueue) Drain() []string {
	out := s.Paths
	s.Paths = nil
	return out
}

func (s *SLoadQueue) CloneStatic() any {
	return &SLoadQueue{Paths: slices.Clone(s.Paths)}
}

// SFileHashes remembers the fingerprint of each file as last loaded or
// saved.
type SFileHashes struct {
	ByPath map[string]Fingerprint
}

func (s *SFileHashes) CloneStatic() any {
	return &SFileHashes{ByPath: maps.Clone(s.ByPath)}
}
