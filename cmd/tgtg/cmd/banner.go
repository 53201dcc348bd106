package cmd

import (
	"fmt"
)

const banner = `
  _______ _____ _______ _____
 |__   __/ ____|__   __/ ____|
    | | | |  __   | | | |  __
    | | | | |_ |  | | | | |_ |
    | | | |__| |  | | | |__| |
    |_|  \_____|  |_|  \_____|

`

func printBanner() {
	fmt.Printf("\x1b[32m%s\x1b[0m", banner)
	fmt.Printf("\x1b[33m  Too Good To Go CLI - Version %s\x1b[0m\n\n", Version)
}
