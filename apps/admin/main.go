package main

import (
	"log"
	"os"

	"github.com/trezcool/madrasa/core"
)

func main() {
	logger := log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	// start CLI
	cli := commandLine{
		out:  os.Stdout,
		conf: core.NewConfig(),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
