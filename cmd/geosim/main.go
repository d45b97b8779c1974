// Command geosim runs the geolocation plugin against a simulated native host.
package main

import (
	"fmt"
	"os"

	"github.com/go-drift/geolocation/cmd/geosim/cmd"
)

func main() {
	if err := cmd.Execute(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
