package main

import (
	"os"

	"github.com/apex/log"
)

func main() {
	if err := newRootCmd(openApp).Execute(); err != nil {
		log.WithError(err).Error("plantctl failed")
		os.Exit(1)
	}
}
