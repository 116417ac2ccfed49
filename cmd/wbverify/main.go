// Command wbverify verifies that metadata written to the desktop semantic
// store is written back into files and can be extracted again.
package main

import "github.com/mesh-intelligence/wbverify/internal/cli"

func main() {
	cli.Execute()
}
