// Command safewalk-server runs the Safe-Walk session engine.
package main

import "github.com/oshokin/safe-walk/cmd/safewalk-server/cmd"

func main() {
	cmd.Execute()
}
