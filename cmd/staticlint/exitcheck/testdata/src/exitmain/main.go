package main

import (
	"errors"
	"log"
	"os"
)

func main() {
	if len(os.Args) > 3 {
		os.Exit(2) // want "os.Exit in main.main skips deferred calls"
	}
	defer func() {
		os.Exit(0)
	}()
	if err := run(); err != nil {
		log.Fatalf("run: %v", err)
	}
}

func run() error {
	if len(os.Args) > 2 {
		log.Fatal("too many args") // want `log.Fatal in run exits the process`
	}
	return errors.New("done")
}

func helper() {
	go func() {
		os.Exit(1) // want `os.Exit in helper exits the process`
	}()
}

type app struct{}

func (app) stop() {
	log.Fatalln("stop") // want `log.Fatalln in stop exits the process`
}
