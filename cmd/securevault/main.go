package main

import "github.com/jmcleod/securevault/cmd/securevault/cmd"

func main() {
	cmd.Execute()
}
