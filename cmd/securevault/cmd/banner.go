package cmd

import (
	"fmt"
	"io"
)

const banner = `
  ___  ___  ___ _   _ _ __ _____   ____ _ _   _| | |_
 / __|/ _ \/ __| | | | '__/ _ \ \ / / _` + "`" + ` | | | | | __|
 \__ \  __/ (__| |_| | | |  __/\ V / (_| | |_| | | |_
 |___/\___|\___|\__,_|_|  \___| \_/ \__,_|\__,_|_|\__|
`

func printBanner(w io.Writer) {
	fmt.Fprintf(w, "\x1b[34m%s\x1b[0m", banner)
	fmt.Fprintf(w, "\x1b[32m  Encrypted local storage - Version %s\x1b[0m\n\n", Version)
}
