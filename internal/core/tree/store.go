// Package tree holds the navigable view of the last ingested batch: leaves
// for processed files, containers for the folders in their names, and the
// current selection.
package tree

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"unpack/internal/core/errors"
	"unpack/internal/core/model"
	"unpack/internal/shared/observability"
	"unpack/internal/shared/util"
)

type Store struct {
	mu       sync.RWMutex
	roots    []*model.FileNode
	index    map[string]*model.FileNode
	selected string
	leaves   int
}

func NewStore() *Store {
	return &Store{index: make(map[string]*model.FileNode)}
}

// ReplaceAll swaps the whole tree for a new batch and clears the selection.
// Duplicate names, or a name that is also a folder of another name, are
// rejected with an AGGREGATION error and leave the store untouched.
func (s *Store) ReplaceAll(files []model.ProcessedFile) error {
	if err := checkNames(files); err != nil {
		return err
	}

	roots := make([]*model.FileNode, 0)
	index := make(map[string]*model.FileNode, len(files))
	for _, f := range files {
		var parent *model.FileNode
		for _, dir := range util.ParentPaths(f.Name) {
			node, ok := index[dir]
			if !ok {
				node = &model.FileNode{Path: dir, Name: path.Base(dir), Children: []*model.FileNode{}}
				index[dir] = node
				roots = attach(roots, parent, node)
			}
			parent = node
		}
		file := f.Clone()
		leaf := &model.FileNode{Path: f.Name, Name: path.Base(util.NormalizePatternPath(f.Name)), File: &file}
		index[f.Name] = leaf
		roots = attach(roots, parent, leaf)
	}

	s.mu.Lock()
	s.roots = roots
	s.index = index
	s.selected = ""
	s.leaves = len(files)
	s.mu.Unlock()

	observability.TreeFiles.Set(float64(len(files)))
	return nil
}

func attach(roots []*model.FileNode, parent, node *model.FileNode) []*model.FileNode {
	if parent == nil {
		return append(roots, node)
	}
	parent.Children = append(parent.Children, node)
	return roots
}

func checkNames(files []model.ProcessedFile) error {
	names := make(map[string]bool, len(files))
	var dupes []string
	for _, f := range files {
		if strings.TrimSpace(f.Name) == "" {
			return errors.New(errors.CodeAggregation, "file with empty name in batch")
		}
		if names[f.Name] {
			dupes = append(dupes, f.Name)
			continue
		}
		names[f.Name] = true
	}
	if len(dupes) > 0 {
		sort.Strings(dupes)
		return errors.New(errors.CodeAggregation, fmt.Sprintf("duplicate file names in batch: %s", strings.Join(dupes, ", ")))
	}
	for _, f := range files {
		for _, dir := range util.ParentPaths(f.Name) {
			if names[dir] {
				return errors.New(errors.CodeAggregation, fmt.Sprintf("name %s is also a folder of %s", dir, f.Name))
			}
		}
	}
	return nil
}

// Select makes path the active selection. Only leaves with content can be
// selected; anything else is a no-op.
func (s *Store) Select(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.index[path]
	if !ok || !node.HasContent() {
		return false
	}
	s.selected = path
	return true
}

// UpdateContent rewrites a leaf's content in place. The hash and derived
// results keep describing the ingested content. Unknown paths and containers
// are a no-op.
func (s *Store) UpdateContent(path, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.index[path]
	if !ok || !node.HasContent() {
		return false
	}
	node.File.Content = text
	node.File.Size = int64(len(text))
	return true
}

// Selected returns a copy of the selected leaf, or nil.
func (s *Store) Selected() *model.FileNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == "" {
		return nil
	}
	return s.index[s.selected].Clone()
}

func (s *Store) SelectedPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Get returns a copy of the node at path.
func (s *Store) Get(path string) (*model.FileNode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	node, ok := s.index[path]
	if !ok {
		return nil, false
	}
	return node.Clone(), true
}

func (s *Store) Roots() []*model.FileNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.FileNode, 0, len(s.roots))
	for _, r := range s.roots {
		out = append(out, r.Clone())
	}
	return out
}

// Files returns copies of every processed file, depth-first.
func (s *Store) Files() []model.ProcessedFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ProcessedFile, 0, s.leaves)
	var walk func(nodes []*model.FileNode)
	walk = func(nodes []*model.FileNode) {
		for _, n := range nodes {
			if n.File != nil {
				out = append(out, n.File.Clone())
				continue
			}
			walk(n.Children)
		}
	}
	walk(s.roots)
	return out
}

// Len is the number of leaves.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.leaves
}
