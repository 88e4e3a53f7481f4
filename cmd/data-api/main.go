package main

import (
	"os"

	"github.com/sms487/archive/archiveservice"
)

func main() {
	if err := archiveservice.Run(); err != nil {
		os.Exit(1)
	}
}
