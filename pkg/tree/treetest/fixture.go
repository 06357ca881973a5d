// Package treetest provides component tree fixtures for tests.
package treetest

import (
	"github.com/devicelab-dev/javagui-runner/pkg/core"
	"github.com/devicelab-dev/javagui-runner/pkg/tree"
)

func node(id, class, name, text string, states []string, children ...core.RawNode) core.RawNode {
	return core.RawNode{
		ID:       id,
		Class:    class,
		Name:     name,
		Text:     text,
		States:   states,
		Children: children,
	}
}

var on = []string{"visible", "enabled", "showing"}

// LoginSnapshot returns a login window:
//
//	JFrame#main "Login"
//	  JPanel#form
//	    JLabel "User", JTextField#username, JLabel "Password",
//	    JPasswordField#password, JButton#submitBtn "Submit",
//	    JButton#cancelBtn "Cancel", JCheckBox#remember
//	  JPanel#status
//	    JLabel#statusLabel "loading" (width=120), JProgressBar#progress (value=40)
//	  JTree#files with nodes Root/src/main.go and Root/docs
//	  JButton#helpBtn "Help" (disabled)
func LoginSnapshot() *core.Snapshot {
	status := node("l3", "javax.swing.JLabel", "statusLabel", "loading", on)
	status.Attributes = map[string]string{"width": "120", "height": "16"}
	progress := node("pb", "javax.swing.JProgressBar", "progress", "", on)
	progress.Attributes = map[string]string{"value": "40", "maximum": "100"}

	treeNode := "javax.swing.tree.DefaultMutableTreeNode"

	return &core.Snapshot{Roots: []core.RawNode{
		node("w1", "javax.swing.JFrame", "main", "Login", on,
			node("p1", "javax.swing.JPanel", "form", "", on,
				node("l1", "javax.swing.JLabel", "", "User", on),
				node("t1", "javax.swing.JTextField", "username", "", append([]string{"editable"}, on...)),
				node("l2", "javax.swing.JLabel", "", "Password", on),
				node("t2", "javax.swing.JPasswordField", "password", "", append([]string{"editable"}, on...)),
				node("b1", "javax.swing.JButton", "submitBtn", "Submit", on),
				node("b2", "javax.swing.JButton", "cancelBtn", "Cancel", on),
				node("c1", "javax.swing.JCheckBox", "remember", "Remember me", on),
			),
			node("p2", "javax.swing.JPanel", "status", "", on, status, progress),
			node("tr", "javax.swing.JTree", "files", "", on,
				node("n1", treeNode, "", "Root", []string{"visible", "expanded"},
					node("n2", treeNode, "", "src", []string{"visible"},
						node("n3", treeNode, "", "main.go", []string{"visible"}),
					),
					node("n4", treeNode, "", "docs", []string{"visible"}),
				),
			),
			node("b3", "javax.swing.JButton", "helpBtn", "Help", []string{"visible"}),
		),
	}}
}

// WithStatus returns LoginSnapshot with the status label text replaced.
func WithStatus(text string) *core.Snapshot {
	snap := LoginSnapshot()
	snap.Roots[0].Children[1].Children[0].Text = text
	return snap
}

// Login builds a Model from LoginSnapshot.
func Login() *tree.Model {
	m, err := tree.Build(LoginSnapshot())
	if err != nil {
		panic(err)
	}
	return m
}
