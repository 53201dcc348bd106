package main

import "github.com/jmcleod/goodtogo/cmd/tgtg/cmd"

func main() {
	cmd.Execute()
}
