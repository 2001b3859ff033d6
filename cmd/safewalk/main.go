// Command safewalk controls a running Safe-Walk server.
package main

import "github.com/oshokin/safe-walk/cmd/safewalk/cmd"

func main() {
	cmd.Execute()
}
