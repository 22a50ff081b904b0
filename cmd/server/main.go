// Command blog runs the blog server and its admin tasks.
//
//	blog serve              start the HTTP server
//	blog user add           create a password account
//	blog config show        print the resolved configuration
//
// The cmd/ directory holds executable entry points; all real logic lives
// in internal/.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
