package main

import (
	"log"
	"os"

	"github.com/trezcool/schooladmin/core"
	logsvc "github.com/trezcool/schooladmin/services/logger"
)

func main() {
	std := log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.LoadConfig()
	if err != nil {
		std.Fatal(err)
	}
	logger := logsvc.New(std, conf)

	// start CLI
	cli := newCommandLine(conf, logger, os.Stdout)
	err = cli.run(os.Args)
	if c, ok := logger.(interface{ Close() }); ok {
		c.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}
