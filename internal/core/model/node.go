package model

// FileNode is an element of the file tree: a leaf wrapping a processed file or
// a container with ordered children. Never both.
type FileNode struct {
	Path     string         `json:"path"`
	Name     string         `json:"name"`
	File     *ProcessedFile `json:"file,omitempty"`
	Children []*FileNode    `json:"children,omitempty"`
}

func (n *FileNode) IsContainer() bool {
	return n != nil && n.File == nil
}

// HasContent reports whether the node is a leaf with loaded content.
func (n *FileNode) HasContent() bool {
	return n != nil && n.File != nil
}

// Clone returns a deep copy so callers cannot mutate store-owned nodes.
func (n *FileNode) Clone() *FileNode {
	if n == nil {
		return nil
	}
	out := &FileNode{Path: n.Path, Name: n.Name}
	if n.File != nil {
		f := n.File.Clone()
		out.File = &f
	}
	if len(n.Children) > 0 {
		out.Children = make([]*FileNode, 0, len(n.Children))
		for _, child := range n.Children {
			out.Children = append(out.Children, child.Clone())
		}
	}
	return out
}

// Clone copies the file including its derived results.
func (f ProcessedFile) Clone() ProcessedFile {
	out := f
	if f.Structure != nil {
		s := *f.Structure
		s.Functions = cloneStrings(f.Structure.Functions)
		s.Classes = cloneStrings(f.Structure.Classes)
		out.Structure = &s
	}
	if f.Semantic != nil {
		s := *f.Semantic
		s.PotentialThreats = cloneStrings(f.Semantic.PotentialThreats)
		s.Recommendations = cloneStrings(f.Semantic.Recommendations)
		out.Semantic = &s
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
