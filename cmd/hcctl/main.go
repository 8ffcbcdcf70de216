package main

import (
	"fmt"
	"os"

	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/yuriy-kovalchuk/yk-healthcheck-manager/internal/cli"
	_ "github.com/yuriy-kovalchuk/yk-healthcheck-manager/internal/healthcheck/providers"
)

var Version = "dev"

func main() {
	root := cli.NewRootCommand(&cli.App{})
	root.Version = Version

	if err := root.ExecuteContext(ctrl.SetupSignalHandler()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(cli.ExitCode(err))
	}
}
