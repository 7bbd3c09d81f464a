// steptrace - Deployment Step Trace Analyzer
//
// steptrace reads CMTrace-format deployment logs and reports how many steps
// succeeded, failed, or warned, which error codes occurred, and how long
// the deployment took.
package main

import (
	"os"

	"github.com/ccollicutt/steptrace/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
