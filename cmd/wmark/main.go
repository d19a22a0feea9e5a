// Command wmark is the local front end of the watermark engine: it opens one
// image, applies a text watermark and saves the result without the API stack.
package main

import (
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		cli.HandleExitCoder(err)
		_, _ = os.Stderr.WriteString("wmark: " + err.Error() + "\n")
		os.Exit(1)
	}
}
