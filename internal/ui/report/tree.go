package report

import (
	"io"
	"strings"

	"unpack/internal/core/model"
)

// WriteTree prints the file tree as an indented outline. The selected path,
// if any, is highlighted.
func WriteTree(w io.Writer, roots []*model.FileNode, selected string) error {
	var b strings.Builder
	for i, node := range roots {
		writeNode(&b, node, "", i == len(roots)-1, selected)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeNode(b *strings.Builder, node *model.FileNode, prefix string, last bool, selected string) {
	branch, next := "├── ", "│   "
	if last {
		branch, next = "└── ", "    "
	}

	label := node.Name
	switch {
	case node.IsContainer():
		label = titleStyle.Render(label + "/")
	case node.Path == selected:
		label = successStyle.Render("> " + label)
	}
	if node.HasContent() {
		label += " " + mutedStyle.Render(FileSummary(*node.File))
	}

	b.WriteString(prefix + branch + label + "\n")
	for i, child := range node.Children {
		writeNode(b, child, prefix+next, i == len(node.Children)-1, selected)
	}
}
