package main

import (
	"log"

	"clinic-waitlist/cmd"
)

func main() {
	if err := cmd.Start(); err != nil {
		log.Fatal(err)
	}
}
