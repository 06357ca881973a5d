package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/javagui-runner/pkg/locator"
	"github.com/devicelab-dev/javagui-runner/pkg/tree"
)

var parseCommand = &cli.Command{
	Name:      "parse",
	Usage:     "Parse a locator and print its syntax tree",
	ArgsUsage: "<locator>",
	Description: `Parses a locator without contacting the application. On success the
syntax tree is printed as YAML; on error the locator is echoed with a caret
under the offending position.

Examples:
  javagui-runner parse "JFrame > JPanel JButton#submit:enabled"
  javagui-runner parse "//JTable[@name='orders']/JTableHeader"
  javagui-runner parse "JTree#settings >> path[Root/Settings/Display]"`,
	Action: runParse,
}

var treeCommand = &cli.Command{
	Name:  "tree",
	Usage: "Fetch and print the component tree",
	Description: `Fetches a fresh snapshot and prints one line per component with its
type, name, text, states and remote id.

Examples:
  javagui-runner tree
  javagui-runner tree --depth 2
  javagui-runner --snapshot login.json tree`,
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "depth",
			Usage: "Maximum depth to print (0 = unlimited)",
		},
	},
	Action: runTree,
}

var findCommand = &cli.Command{
	Name:      "find",
	Usage:     "List every component a locator matches",
	ArgsUsage: "<locator>",
	Description: `Resolves a locator against a fresh snapshot and lists the matches in
document order. When nothing matches, near-miss suggestions are printed.

Examples:
  javagui-runner find "JButton:enabled"
  javagui-runner find "JPanel#form > JTextField:nth(1)"`,
	Action: runFind,
}

var getCommand = &cli.Command{
	Name:      "get",
	Usage:     "Read a property of the single component a locator matches",
	ArgsUsage: "<locator> <property>",
	Description: `Reads text, name, type, states, a single state or any attribute the
agent reports.

Examples:
  javagui-runner get "#statusLabel" text
  javagui-runner get "#submitBtn" enabled
  javagui-runner get "JProgressBar" value`,
	Action: runGet,
}

func runParse(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one locator, got %d arguments", c.NArg())
	}
	sel, err := locator.Parse(c.Args().First())
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(c.App.Writer)
	enc.SetIndent(2)
	if err := enc.Encode(sel); err != nil {
		return fmt.Errorf("failed to encode syntax tree: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "# canonical: %s\n", sel.String())
	return nil
}

func runTree(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	m, err := e.session.RefreshTree(context.Background())
	if err != nil {
		return err
	}
	return m.Dump(c.App.Writer, c.Int("depth"))
}

func runFind(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one locator, got %d arguments", c.NArg())
	}
	text := c.Args().First()

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	if _, err := e.session.RefreshTree(context.Background()); err != nil {
		return err
	}
	handles, err := e.session.ResolveAll(text)
	if err != nil {
		return err
	}
	if len(handles) == 0 {
		// ResolveOne carries the near-miss suggestions.
		_, err := e.session.ResolveOne(text)
		return err
	}

	m := e.session.Tree()
	for _, h := range handles {
		n, ok := m.Lookup(h.RemoteID)
		if !ok {
			continue
		}
		fmt.Fprintf(c.App.Writer, "%-8s %s\n", h.RemoteID, summarize(n))
	}
	fmt.Fprintf(c.App.Writer, "%d match(es), generation %d\n", len(handles), m.Generation)
	return nil
}

func runGet(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("expected <locator> <property>, got %d arguments", c.NArg())
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	if _, err := e.session.RefreshTree(context.Background()); err != nil {
		return err
	}
	v, err := e.session.Get(c.Args().Get(0), c.Args().Get(1))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, formatValue(v))
	return nil
}

// summarize renders a node as type#name "text".
func summarize(n *tree.Node) string {
	s := n.SimpleType()
	if name := n.Name(); name != "" {
		s += "#" + name
	}
	if text := n.Text(); text != "" {
		s += fmt.Sprintf(" %q", text)
	}
	return s
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case []string:
		return fmt.Sprintf("%v", val)
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprint(val)
	}
}
