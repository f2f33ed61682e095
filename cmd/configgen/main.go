package main

import (
	"fmt"
	"os"

	"github.com/danmuck/radiomute/internal/config"
	"github.com/spf13/pflag"
)

func main() {
	output := pflag.String("out", "radiomute.toml", "output path for config template")
	validate := pflag.Bool("validate", false, "validate an existing config file at --out")
	force := pflag.Bool("force", false, "overwrite existing config file")
	pflag.Parse()

	if *validate {
		if _, err := config.Load(*output); err != nil {
			fmt.Fprintf(os.Stderr, "configgen: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Validated config at %s\n", *output)
		return
	}

	if err := config.WriteTemplate(*output, *force); err != nil {
		fmt.Fprintf(os.Stderr, "configgen: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote config template to %s\n", *output)
}
