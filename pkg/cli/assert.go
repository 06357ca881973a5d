package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/javagui-runner/pkg/session"
)

var assertCommand = &cli.Command{
	Name:      "assert",
	Usage:     "Retry a property comparison until it holds or times out",
	ArgsUsage: "<locator> <property> <operator> <expected>",
	Description: `Re-reads the component tree every poll interval until the property
satisfies the operator, or the timeout expires. Expected values are read as
YAML scalars, so true, 40 and 1.5 compare as bool and numbers.

Operators: == != < <= > >= contains "not contains" matches "starts with"
"ends with", plus word forms such as equals and "greater than".

Examples:
  javagui-runner assert "#statusLabel" text == ready
  javagui-runner --timeout 3s assert "#submitBtn" states contains enabled
  javagui-runner assert -m "download never finished" "JProgressBar" value ">=" 100`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "message",
			Aliases: []string{"m"},
			Usage:   "Message to report if the assertion fails",
		},
	},
	Action: runAssert,
}

func runAssert(c *cli.Context) error {
	if c.NArg() != 4 {
		return fmt.Errorf("expected <locator> <property> <operator> <expected>, got %d arguments", c.NArg())
	}
	args := c.Args()

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	var opts []session.AssertOption
	if msg := c.String("message"); msg != "" {
		opts = append(opts, session.WithMessage(msg))
	}

	v, err := e.session.Assert(args.Get(0), args.Get(1), args.Get(2), parseExpected(args.Get(3)), opts...)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s %s %s %s %s (actual: %s)\n",
		colorize(c, colorGreen, "✓"), args.Get(0), args.Get(1), args.Get(2), args.Get(3), formatValue(v))
	return nil
}

// parseExpected reads s as a YAML scalar; anything that is not a plain
// scalar stays a string.
func parseExpected(s string) interface{} {
	var v interface{}
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	switch v.(type) {
	case bool, int, float64, string:
		return v
	default:
		return s
	}
}
