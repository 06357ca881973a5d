// Command javagui-runner locates and asserts on components of a running
// Java GUI application.
package main

import "github.com/devicelab-dev/javagui-runner/pkg/cli"

func main() {
	cli.Execute()
}
